package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Kind is the stable tag a message is routed by.
type Kind string

// Message is implemented by every command and query. Kind must use a value
// receiver so it can be read from the zero value during registration.
type Message interface {
	Kind() Kind
}

type shape int

const (
	shapeCommand shape = iota + 1
	shapeQuery
)

func (s shape) String() string {
	if s == shapeQuery {
		return "query"
	}
	return "command"
}

type entry struct {
	shape   shape
	command func(ctx context.Context, msg Message) error
	query   func(ctx context.Context, msg Message) (any, error)
	// result is set for commands that report an outcome value such as a
	// generated id. It is nil for plain commands.
	result func(ctx context.Context, msg Message) (any, error)
}

// Registry collects handlers while the application is wired. It is not safe
// for concurrent use; Build turns it into an immutable Mediator.
type Registry struct {
	entries map[Kind]entry
	errs    []error
	opts    []Option
}

// NewRegistry creates an empty registry. Options are applied to the Mediator
// produced by Build.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{entries: make(map[Kind]entry), opts: opts}
}

// HandleCommand registers fn as the single handler for the kind of C.
func HandleCommand[C Message](r *Registry, fn func(ctx context.Context, cmd C) error) {
	var zero C
	r.add(zero.Kind(), entry{
		shape: shapeCommand,
		command: func(ctx context.Context, msg Message) error {
			cmd, ok := msg.(C)
			if !ok {
				return configError(msg.Kind(), ErrShapeMismatch, fmt.Sprintf("handler expects %T, got %T", zero, msg))
			}
			return fn(ctx, cmd)
		},
	})
}

// HandleCommandResult registers fn as the single handler for the kind of C
// when the command reports a value on success, such as the id it assigned.
// The command can still be sent through DispatchCommand; the value is then
// discarded.
func HandleCommandResult[C Message, R any](r *Registry, fn func(ctx context.Context, cmd C) (R, error)) {
	var zero C
	result := func(ctx context.Context, msg Message) (any, error) {
		cmd, ok := msg.(C)
		if !ok {
			return nil, configError(msg.Kind(), ErrShapeMismatch, fmt.Sprintf("handler expects %T, got %T", zero, msg))
		}
		return fn(ctx, cmd)
	}
	r.add(zero.Kind(), entry{
		shape: shapeCommand,
		command: func(ctx context.Context, msg Message) error {
			_, err := result(ctx, msg)
			return err
		},
		result: result,
	})
}

// HandleQuery registers fn as the single handler for the kind of Q.
func HandleQuery[Q Message, R any](r *Registry, fn func(ctx context.Context, q Q) (R, error)) {
	var zero Q
	r.add(zero.Kind(), entry{
		shape: shapeQuery,
		query: func(ctx context.Context, msg Message) (any, error) {
			q, ok := msg.(Q)
			if !ok {
				return nil, configError(msg.Kind(), ErrShapeMismatch, fmt.Sprintf("handler expects %T, got %T", zero, msg))
			}
			return fn(ctx, q)
		},
	})
}

func (r *Registry) add(kind Kind, e entry) {
	if kind == "" {
		r.errs = append(r.errs, configError(kind, ErrEmptyKind, ""))
		return
	}
	if _, exists := r.entries[kind]; exists {
		r.errs = append(r.errs, configError(kind, ErrDuplicateHandler, ""))
		return
	}
	r.entries[kind] = e
}

// Build verifies the table and returns the Mediator. Every kind in required
// must have a handler; registration defects recorded earlier are reported
// together.
func (r *Registry) Build(required ...Kind) (*Mediator, error) {
	errs := append([]error(nil), r.errs...)
	for _, kind := range required {
		if _, ok := r.entries[kind]; !ok {
			errs = append(errs, configError(kind, ErrNotRegistered, ""))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	handlers := make(map[Kind]entry, len(r.entries))
	for kind, e := range r.entries {
		handlers[kind] = e
	}

	m := &Mediator{handlers: handlers}
	for _, opt := range r.opts {
		opt(m)
	}
	m.applyDefaults()
	return m, nil
}

// Kinds lists the registered kinds in lexical order.
func (m *Mediator) Kinds() []Kind {
	kinds := make([]Kind, 0, len(m.handlers))
	for kind := range m.handlers {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
