package booking

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidation                = errors.New("validation error")
	ErrNotAvailable              = errors.New("booking not available")
	ErrNotFound                  = errors.New("booking not found")
	ErrForbidden                 = errors.New("forbidden")
	ErrInvalidStatusTransition   = errors.New("invalid status transition")
	ErrRoomNotFound              = errors.New("room not found")
	ErrPartialPaymentUnavailable = errors.New("partial payment unavailable for this stay")
)

// ValidationError lists the offending fields. It matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
