package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRegistered means no handler exists for a message kind.
	ErrNotRegistered = errors.New("no handler registered")
	// ErrDuplicateHandler means a kind was registered more than once.
	ErrDuplicateHandler = errors.New("duplicate handler")
	// ErrShapeMismatch means a command was dispatched as a query, a query as
	// a command, or a handler received or produced an unexpected type.
	ErrShapeMismatch = errors.New("handler shape mismatch")
	// ErrEmptyKind means a message type reports an empty kind.
	ErrEmptyKind = errors.New("empty message kind")
)

// ConfigError reports a wiring defect. It is never a domain outcome and
// callers should treat it as fatal.
type ConfigError struct {
	Kind Kind
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("dispatch: %v", e.Err)
	}
	return fmt.Sprintf("dispatch %q: %v", string(e.Kind), e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err carries a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

func configError(kind Kind, err error, detail string) *ConfigError {
	if detail != "" {
		err = fmt.Errorf("%w: %s", err, detail)
	}
	return &ConfigError{Kind: kind, Err: err}
}
