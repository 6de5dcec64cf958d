// Package apperr defines the error taxonomy shared by the stores, the codec and
// the API layer.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrPersistence  = errors.New("persistence failed")
	ErrFormat       = errors.New("invalid format")
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError reports input that failed shape or enum constraints.
// Fields maps a field name to its problem; Indices lists offending positions
// when a sequence was validated.
type ValidationError struct {
	Fields  map[string]string
	Indices []int
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Indices) > 0 {
		idx := make([]string, len(e.Indices))
		for i, n := range e.Indices {
			idx[i] = strconv.Itoa(n)
		}
		parts = append(parts, "invalid items at indices "+strings.Join(idx, ","))
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	if len(parts) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError for a single field.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// NotFoundError reports an id absent from a collection.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// PersistenceError reports a durable write that failed after the in-memory
// state was already updated.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: change may not survive a reload: %v", e.Key, e.Err)
}

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func (e *PersistenceError) Unwrap() error { return e.Err }

// FormatError reports a malformed or oversized import payload.
type FormatError struct {
	Reason   string
	Details  []string
	TooLarge bool
	Err      error
}

func (e *FormatError) Error() string {
	msg := ErrFormat.Error() + ": " + e.Reason
	if len(e.Details) > 0 {
		msg += ": " + strings.Join(e.Details, "; ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func (e *FormatError) Unwrap() error { return e.Err }
