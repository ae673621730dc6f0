package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/noah-isme/enrollment-api/internal/dispatch"

// Dispatch outcomes reported to observers.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeConfigError = "config_error"
)

// Observer receives one notification per dispatch.
type Observer interface {
	ObserveDispatch(kind, outcome string, duration time.Duration)
}

// Option configures a Mediator.
type Option func(*Mediator)

// WithLogger sets the logger used for debug dispatch traces.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Mediator) { m.logger = logger }
}

// WithObserver registers a dispatch observer such as a metrics recorder.
func WithObserver(observer Observer) Option {
	return func(m *Mediator) { m.observer = observer }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Mediator) { m.tracer = tracer }
}

// Mediator routes each message to exactly one handler by kind. It is
// immutable once built and safe for concurrent use.
type Mediator struct {
	handlers map[Kind]entry
	logger   *zap.Logger
	observer Observer
	tracer   trace.Tracer
}

func (m *Mediator) applyDefaults() {
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer(tracerName)
	}
}

// DispatchCommand runs the handler registered for cmd and returns its outcome.
func (m *Mediator) DispatchCommand(ctx context.Context, cmd Message) error {
	if cmd == nil {
		return configError("", ErrNotRegistered, "nil command")
	}
	kind := cmd.Kind()
	return m.run(ctx, kind, shapeCommand, func(ctx context.Context) error {
		e, err := m.resolve(kind, shapeCommand)
		if err != nil {
			return err
		}
		return e.command(ctx, cmd)
	})
}

// DispatchCommandResult runs the handler registered for cmd and returns the
// value it reported. The handler must have been registered with
// HandleCommandResult.
func DispatchCommandResult[R any](ctx context.Context, m *Mediator, cmd Message) (R, error) {
	var zero R
	if cmd == nil {
		return zero, configError("", ErrNotRegistered, "nil command")
	}

	kind := cmd.Kind()
	var result R
	err := m.run(ctx, kind, shapeCommand, func(ctx context.Context) error {
		e, err := m.resolve(kind, shapeCommand)
		if err != nil {
			return err
		}
		if e.result == nil {
			return configError(kind, ErrShapeMismatch, "command handler reports no result")
		}
		raw, err := e.result(ctx, cmd)
		if err != nil {
			return err
		}
		typed, ok := raw.(R)
		if !ok {
			return configError(kind, ErrShapeMismatch, fmt.Sprintf("handler returned %T, caller expects %T", raw, zero))
		}
		result = typed
		return nil
	})
	if err != nil {
		return zero, err
	}
	return result, nil
}

// DispatchQuery runs the handler registered for q and returns its typed result.
func DispatchQuery[R any](ctx context.Context, m *Mediator, q Message) (R, error) {
	var zero R
	if q == nil {
		return zero, configError("", ErrNotRegistered, "nil query")
	}

	kind := q.Kind()
	var result R
	err := m.run(ctx, kind, shapeQuery, func(ctx context.Context) error {
		e, err := m.resolve(kind, shapeQuery)
		if err != nil {
			return err
		}
		raw, err := e.query(ctx, q)
		if err != nil {
			return err
		}
		typed, ok := raw.(R)
		if !ok {
			return configError(kind, ErrShapeMismatch, fmt.Sprintf("handler returned %T, caller expects %T", raw, zero))
		}
		result = typed
		return nil
	})
	if err != nil {
		return zero, err
	}
	return result, nil
}

func (m *Mediator) resolve(kind Kind, want shape) (entry, error) {
	e, ok := m.handlers[kind]
	if !ok {
		return entry{}, configError(kind, ErrNotRegistered, "")
	}
	if e.shape != want {
		return entry{}, configError(kind, ErrShapeMismatch, fmt.Sprintf("registered as %s, dispatched as %s", e.shape, want))
	}
	return e, nil
}

func (m *Mediator) run(ctx context.Context, kind Kind, s shape, fn func(context.Context) error) error {
	ctx, span := m.tracer.Start(ctx, "dispatch "+string(kind),
		trace.WithAttributes(
			attribute.String("dispatch.kind", string(kind)),
			attribute.String("dispatch.shape", s.String()),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	outcome := Outcome(err)
	span.SetAttributes(attribute.String("dispatch.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		if outcome == OutcomeConfigError {
			span.SetStatus(codes.Error, err.Error())
		}
	}

	if m.observer != nil {
		m.observer.ObserveDispatch(string(kind), outcome, elapsed)
	}

	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.String("outcome", outcome),
		zap.Duration("duration", elapsed),
	}
	switch outcome {
	case OutcomeConfigError:
		m.logger.Error("dispatch misconfigured", append(fields, zap.Error(err))...)
	case OutcomeFailure:
		m.logger.Debug("dispatch failed", append(fields, zap.Error(err))...)
	default:
		m.logger.Debug("dispatch completed", fields...)
	}
	return err
}

// Outcome classifies a dispatch result.
func Outcome(err error) string {
	var cfgErr *ConfigError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &cfgErr):
		return OutcomeConfigError
	default:
		return OutcomeFailure
	}
}
