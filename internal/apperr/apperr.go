// Package apperr defines the sentinel error categories used across nilmeval-cli.
//
// Error taxonomy
//
//	ConfigError  – invalid configuration or user input (bad fold count, a
//	               multi-fold model used where a single fold is required,
//	               unknown algorithm, malformed flag values).
//	               Surfaced immediately, never retried. Exit code: 1.
//
//	DomainError  – the model and the algorithm (or the data) disagree: an
//	               out-of-range super-state index, a label vector of the
//	               wrong length, unpaired accuracy updates. Indicates a bug
//	               in the pairing, never retried. Exit code: 1.
//
//	ErrCancelled – the user deliberately aborted an interactive flow
//	               (algorithm picker).
//	               Exit code: 0 (not a failure).
//
// A zero-probability ("unseen") inference is not an error and end of input
// is a normal terminal condition; neither is represented here.
//
// Everything else is a plain Go error (I/O, CSV or JSON parsing, SQLite, …)
// and is propagated with fmt.Errorf("context: %w", err) wrapping.
package apperr

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when the user explicitly aborts an interactive
// operation.  The CLI should exit 0 rather than 1 when it sees this error.
var ErrCancelled = errors.New("operation cancelled")

// ConfigError represents an error caused by invalid configuration or user
// input. Command handlers return this instead of a bare fmt.Errorf so the
// root command can format the message without repeating usage output.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// Config creates a ConfigError with the given message.
func Config(msg string) error { return &ConfigError{Message: msg} }

// Configf creates a formatted ConfigError.
func Configf(format string, args ...any) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// IsConfig reports whether err is (or wraps) a *ConfigError.
func IsConfig(err error) bool {
	var c *ConfigError
	return errors.As(err, &c)
}

// DomainError signals that a model, an algorithm and the data fed to them
// are inconsistent with each other.
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string { return e.Message }

// Domain creates a DomainError with the given message.
func Domain(msg string) error { return &DomainError{Message: msg} }

// Domainf creates a formatted DomainError.
func Domainf(format string, args ...any) error {
	return &DomainError{Message: fmt.Sprintf(format, args...)}
}

// IsDomain reports whether err is (or wraps) a *DomainError.
func IsDomain(err error) bool {
	var d *DomainError
	return errors.As(err, &d)
}
