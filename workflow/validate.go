package workflow

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Default ticket field limits.
const (
	DefaultMaxSubjectLength     = 200
	DefaultMaxDescriptionLength = 5000
)

// Limits bounds ticket field sizes, measured in characters.
type Limits struct {
	MaxSubjectLength     int
	MaxDescriptionLength int
}

// DefaultLimits returns the standard ticket limits.
func DefaultLimits() Limits {
	return Limits{
		MaxSubjectLength:     DefaultMaxSubjectLength,
		MaxDescriptionLength: DefaultMaxDescriptionLength,
	}
}

// ValidateTicket rejects blank or oversized tickets. The returned error wraps
// ErrInvalidTicket.
func ValidateTicket(t Ticket, limits Limits) error {
	if strings.TrimSpace(t.Subject) == "" {
		return &ValidationError{Field: "subject", Reason: "must not be empty"}
	}
	if strings.TrimSpace(t.Description) == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if limits.MaxSubjectLength > 0 && utf8.RuneCountInString(t.Subject) > limits.MaxSubjectLength {
		return &ValidationError{
			Field:  "subject",
			Reason: fmt.Sprintf("must be %d characters or less", limits.MaxSubjectLength),
		}
	}
	if limits.MaxDescriptionLength > 0 && utf8.RuneCountInString(t.Description) > limits.MaxDescriptionLength {
		return &ValidationError{
			Field:  "description",
			Reason: fmt.Sprintf("must be %d characters or less", limits.MaxDescriptionLength),
		}
	}
	return nil
}
