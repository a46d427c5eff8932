// Package core provides the public types and interfaces shared across the
// simulation engine: data model, error kinds, configuration and logging.
package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a SimError for routing and retry decisions. No stack
// trace or language-runtime detail crosses a component boundary; only the
// kind and message do.
type ErrorKind string

const (
	ErrValidation   ErrorKind = "validation"
	ErrExpression   ErrorKind = "expression"
	ErrLogicRuntime ErrorKind = "logic_runtime"
	ErrTimeout      ErrorKind = "timeout"
	ErrRateLimit    ErrorKind = "rate_limit"
	ErrNetwork      ErrorKind = "network"
	ErrProvider     ErrorKind = "provider"
	ErrStorage      ErrorKind = "storage"
	ErrGoalAmbig    ErrorKind = "goal_ambiguous"
	ErrInternal     ErrorKind = "internal"
)

// SimError is the structured error type used across every component
// boundary in the engine.
type SimError struct {
	Kind    ErrorKind
	Message string
	AgentID string
	Step    int
	Cause   error
}

func (e *SimError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SimError) Unwrap() error { return e.Cause }

// NewError constructs a SimError of the given kind.
func NewError(kind ErrorKind, message string) *SimError {
	return &SimError{Kind: kind, Message: message}
}

// Wrap constructs a SimError of the given kind wrapping an underlying cause.
func Wrap(kind ErrorKind, message string, cause error) *SimError {
	return &SimError{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the ErrorKind from err if it is (or wraps) a *SimError,
// otherwise returns ErrInternal.
func KindOf(err error) ErrorKind {
	var se *SimError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrInternal
}

// Retryable reports whether an error of this kind should be retried by the
// LLM Gateway's backoff policy (see §4.A / §7).
func Retryable(kind ErrorKind) bool {
	switch kind {
	case ErrTimeout, ErrRateLimit, ErrNetwork, ErrProvider:
		return true
	default:
		return false
	}
}
