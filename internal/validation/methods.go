package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	apperr "alumnet/internal/errors"
)

// Validator collects field errors for business rules that struct tags cannot express.
type Validator struct {
	Errors map[string]string
}

// New creates a new validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid checks if there are any validation errors
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError keeps the first message reported for a field.
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Err returns nil or a validation DomainError carrying every field message.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	return apperr.ValidationFields(v.Errors)
}

// Required checks if a string is not empty
func (v *Validator) Required(field string, value interface{}) {
	if value == nil {
		v.AddError(field, "must not be nil")
		return
	}

	switch val := value.(type) {
	case string:
		v.Check(strings.TrimSpace(val) != "", field, "must not be empty")
	case []string:
		v.Check(len(val) > 0, field, "must contain at least one item")
	case float64:
		v.Check(val != 0, field, "must not be zero")
	case int:
		v.Check(val != 0, field, "must not be zero")
	}
}

// MaxLength checks if a string has at most n characters
func (v *Validator) MaxLength(field string, value string, n int) {
	v.Check(len([]rune(value)) <= n, field, fmt.Sprintf("must not be more than %d characters long", n))
}

// Range checks if a number is between min and max
func (v *Validator) Range(field string, value float64, min, max float64) {
	v.Check(value >= min && value <= max, field, fmt.Sprintf("must be between %v and %v", min, max))
}

// Before checks that start precedes end when both are set.
func (v *Validator) Before(field string, start, end *time.Time) {
	if start == nil || end == nil {
		return
	}
	v.Check(start.Before(*end), field, "start date must be before end date")
}

// Password validates password strength
func (v *Validator) Password(field, password string) {
	n := len(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		v.AddError(field, fmt.Sprintf("must be between %d and %d characters long", MinPasswordLength, MaxPasswordLength))
		return
	}

	var hasLetter, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	v.Check(hasLetter, field, "must contain at least one letter")
	v.Check(hasNumber, field, "must contain at least one number")
	v.Check(HasSpecialChar(password), field, "must contain at least one special character")
}
