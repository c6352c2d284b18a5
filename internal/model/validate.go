package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxNoteLength bounds the free-text note attached to a geotification.
const MaxNoteLength = 500

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// ValidateGeotification checks a Geotification for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if it is valid.
// The radius upper bound is platform specific and is not checked here.
func ValidateGeotification(g *Geotification) error {
	var ve ValidationError

	if strings.TrimSpace(g.Identifier) == "" {
		ve.add("identifier", "is required")
	}
	// Range checks are written positively so NaN fails them.
	if lat := g.Coordinate.Latitude; !(lat >= -90 && lat <= 90) {
		ve.add("coordinate.latitude", "must be between -90 and 90, got %g", lat)
	}
	if lon := g.Coordinate.Longitude; !(lon >= -180 && lon <= 180) {
		ve.add("coordinate.longitude", "must be between -180 and 180, got %g", lon)
	}
	if !(g.Radius > 0) {
		ve.add("radius", "must be positive, got %g", g.Radius)
	}
	if utf8.RuneCountInString(g.Note) > MaxNoteLength {
		ve.add("note", "must be %d characters or fewer", MaxNoteLength)
	}
	if !g.EventType.IsValid() {
		ve.add("event_type", "invalid value %q", g.EventType)
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
