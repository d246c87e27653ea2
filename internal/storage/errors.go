package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by updates and toggles whose target row does
	// not exist. Point reads report absence with a boolean instead.
	ErrNotFound = errors.New("record not found")

	// ErrCorrupt matches every *CorruptionError.
	ErrCorrupt = errors.New("stored data is corrupt")

	// ErrInvalid is returned before a write whose record holds a value that
	// could not be read back, such as the zero date.
	ErrInvalid = errors.New("invalid record")
)

// NotFound wraps ErrNotFound with the table and key that were targeted.
func NotFound(table, key string) error {
	return fmt.Errorf("%s %q: %w", table, key, ErrNotFound)
}

// Invalid wraps ErrInvalid with the offending table column and record key.
func Invalid(table, column, key, reason string) error {
	return fmt.Errorf("%s %q: %s %s: %w", table, key, column, reason, ErrInvalid)
}

// CorruptionError reports a stored value that violates the schema, such as a
// NULL in a NOT NULL column or an unparseable date. It is not retryable.
type CorruptionError struct {
	Table  string
	Column string
	Key    string
	Err    error
}

func (e *CorruptionError) Error() string {
	msg := fmt.Sprintf("corrupt value in %s.%s", e.Table, e.Column)
	if e.Key != "" {
		msg += fmt.Sprintf(" (row %q)", e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	} else {
		msg += ": unexpected NULL"
	}
	return msg
}

func (e *CorruptionError) Is(target error) bool {
	return target == ErrCorrupt
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}
