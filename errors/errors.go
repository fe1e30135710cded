// Package errors provides standardized error handling for the bridge's
// infrastructure layers: error classification, standard error
// variables, and helpers for consistent wrapping. The sensor data path
// reports failures through result.Result; this package covers the
// transport, broker, and configuration boundaries where Go errors are
// the native currency.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Class represents the classification of errors for handling purposes.
type Class int

const (
	// Transient errors are temporary and may be retried.
	Transient Class = iota
	// Invalid errors stem from bad input or configuration.
	Invalid
	// Fatal errors are unrecoverable and should stop processing.
	Fatal
)

// String returns the string representation of the Class.
func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case Invalid:
		return "invalid"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions. Decode and framing
// failures are not here: the data path reports those through
// result.Result strings.
var (
	// Transport errors
	ErrPortNotOpen   = errors.New("serial port not open")
	ErrReceiveFailed = errors.New("receive failed")

	// Broker errors
	ErrNotConnected = errors.New("broker not connected")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)

// ClassifiedError wraps an error with its classification.
type ClassifiedError struct {
	Class     Class
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface.
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error.
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransient checks if an error is transient and may be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == Transient
	}

	if errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrReceiveFailed) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "connection", "temporary", "unavailable", "busy"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// IsFatal checks if an error is fatal and should stop processing.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == Fatal
	}

	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrMissingConfig)
}

// IsInvalid checks if an error is due to invalid input. Only
// classified errors carry the Invalid class; checksum and parse
// failures travel as result.Result strings, not Go errors.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == Invalid
	}

	return false
}

// Classify returns the error class for an error. Unknown errors
// default to transient to allow retry.
func Classify(err error) Class {
	switch {
	case err == nil:
		return Transient
	case IsTransient(err):
		return Transient
	case IsFatal(err):
		return Fatal
	case IsInvalid(err):
		return Invalid
	default:
		return Transient
	}
}

func newClassified(class Class, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern
// "component.method: action failed: %w".
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context.
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return newClassified(Transient, wrapped, component, method, wrapped.Error())
}

// WrapInvalid wraps an error as invalid with context.
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return newClassified(Invalid, wrapped, component, method, wrapped.Error())
}

// WrapFatal wraps an error as fatal with context.
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return newClassified(Fatal, wrapped, component, method, wrapped.Error())
}
