package ports

import (
	"fmt"

	"github.com/yanun0323/errors"
)

// Recoverable failures. The scheduler skips the affected day/symbol and
// continues; connectivity failures are retried at the port boundary by the
// caller, never inside strategy logic.
var (
	ErrDataUnavailable = errors.New("port: data unavailable")
	ErrConnectivity    = errors.New("port: connectivity failure")
	ErrOrderNotFound   = errors.New("port: order not found")
	ErrNotSupported    = errors.New("port: operation not supported")
)

// ConfigError is fatal: it aborts a run before any state mutation.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Msg
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// NewConfigError builds a fatal configuration error.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// AlgorithmError wraps a failure inside one algorithm. It is isolated:
// sibling algorithms and the scheduler keep running.
type AlgorithmError struct {
	Algorithm string
	Op        string
	Err       error
}

func (e *AlgorithmError) Error() string {
	return fmt.Sprintf("algorithm %s: %s failed, err: %v", e.Algorithm, e.Op, e.Err)
}

func (e *AlgorithmError) Unwrap() error {
	return e.Err
}
