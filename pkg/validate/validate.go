// Package validate provides a structured violation list for entity
// validation. Validation runs as an explicit pass before any transactional
// work; it collects every failed constraint instead of stopping at the first.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Violation describes a single failed field constraint.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// Violations is an ordered list of constraint failures. A nil or empty list
// means the value is valid.
type Violations []Violation

// Error makes a non-empty violation list usable as an error value.
func (vs Violations) Error() string {
	msgs := make([]string, len(vs))
	for i, v := range vs {
		msgs[i] = v.String()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add appends a violation for the given field.
func (vs *Violations) Add(field, format string, args ...any) {
	*vs = append(*vs, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
}

// AsError returns the list as an error, or nil when there are no violations.
func (vs Violations) AsError() error {
	if len(vs) == 0 {
		return nil
	}
	return vs
}

// NotBlank adds a violation when the value is empty or whitespace only.
func (vs *Violations) NotBlank(field, value string) {
	if strings.TrimSpace(value) == "" {
		vs.Add(field, "cannot be blank")
	}
}

// Length adds a violation when the value's rune count is outside [min, max].
// Blank values are skipped so NotBlank and Length do not double-report.
func (vs *Violations) Length(field, value string, min, max int) {
	if strings.TrimSpace(value) == "" {
		return
	}
	if n := utf8.RuneCountInString(value); n < min || n > max {
		vs.Add(field, "must be between %d and %d characters", min, max)
	}
}

// MaxLength adds a violation when the value exceeds max runes.
func (vs *Violations) MaxLength(field, value string, max int) {
	if utf8.RuneCountInString(value) > max {
		vs.Add(field, "must be at most %d characters", max)
	}
}
