package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/komix/komix-api/internal/repository"
)

// Domain errors returned by Service operations
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrUnauthorized     = errors.New("invalid credentials")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrExpired          = errors.New("expired")
	ErrAlreadyUsed      = errors.New("already used")
)

// ValidationError reports malformed input, keyed by field name
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for f, rule := range e.Fields {
		parts = append(parts, f+": "+rule)
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, ", "))
}

func invalidField(field, rule string) *ValidationError {
	return &ValidationError{Message: "validation failed", Fields: map[string]string{field: rule}}
}

// translate maps storage errors onto domain errors: a missing row becomes
// ErrNotFound and a unique violation becomes onConflict.
func translate(err error, onConflict error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrUniqueViolation):
		return onConflict
	default:
		return err
	}
}
