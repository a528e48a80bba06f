package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrForbidden indicates the caller lacks the role for the operation.
	ErrForbidden = errors.New("forbidden")

	ErrCategoryNotFound      = errors.New("category not found")
	ErrParentNotFound        = errors.New("parent category not found")
	ErrDuplicateCategoryName = errors.New("category name already exists")
	ErrCyclicHierarchy       = errors.New("category hierarchy would contain a cycle")
	ErrHasChildren           = errors.New("category has children")
	ErrHierarchyTooDeep      = errors.New("category hierarchy too deep")
	ErrInvalidDeleteMode     = errors.New("invalid delete mode")
)

// FieldError describes one failed field constraint.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError carries every field constraint a request failed.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
