package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotImplemented marks a resolution path that has no implementation.
	// It is never a synonym for "no data".
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnknownKind is returned for entity kinds or document types outside the supported set.
	ErrUnknownKind = errors.New("unknown entity kind")
)

// ValidationError is returned when an inbound payload does not match its schema.
type ValidationError struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s payload: %s: %s", e.Kind, e.Field, e.Message)
}

// MappingError is raised by the field mapper when a required field is missing or invalid.
type MappingError struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *MappingError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s is required", e.Kind, e.Field)
}

// WriteError wraps a create, update or patch rejected by a store.
type WriteError struct {
	Store string // "content" or "relational"
	Op    string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Store, e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// PartialWriteError reports a write that succeeded in one store while the
// follow-up write in the other store failed, leaving the pair out of sync.
type PartialWriteError struct {
	Written string // store that holds the new state
	Failed  string // store that missed it
	Err     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial write: %s updated but %s failed: %v", e.Written, e.Failed, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsMappingError reports whether err is or wraps a *MappingError.
func IsMappingError(err error) bool {
	var target *MappingError
	return errors.As(err, &target)
}

// IsPartialWrite reports whether err is or wraps a *PartialWriteError.
func IsPartialWrite(err error) bool {
	var target *PartialWriteError
	return errors.As(err, &target)
}
