package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound        = fmt.Errorf("not found")
	ErrNoAgents        = fmt.Errorf("no agents configured")
	ErrNoResults       = fmt.Errorf("no results")
	ErrDisabled        = fmt.Errorf("capability disabled")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrRateLimit       = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid     = fmt.Errorf("authentication failed")
	ErrProviderError   = fmt.Errorf("provider error")
	ErrPassageStore    = fmt.Errorf("passage store operation failed")
	ErrConfigLoad      = fmt.Errorf("failed to load configuration")
	ErrDecryption      = fmt.Errorf("decryption failed")
	ErrSessionNotFound = fmt.Errorf("session not found")
)

// DomainError wraps an error with the operation that produced it.
type DomainError struct {
	Op     string
	Err    error
	Detail string
}

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err).
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsNoContribution reports whether a tool error should be treated as an
// ordinary empty outcome rather than a failure worth logging loudly.
func IsNoContribution(err error) bool {
	return errors.Is(err, ErrNoResults) || errors.Is(err, ErrDisabled)
}
