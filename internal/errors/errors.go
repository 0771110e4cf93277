// Package errors defines the domain error taxonomy shared by services and
// handlers. Every error a swap operation returns to its caller is either a
// *DomainError or an infrastructure error wrapped with fmt.Errorf.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a domain error; handlers map it to a transport status.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindConcurrency   Kind = "concurrency"
)

type DomainError struct {
	Kind    Kind              `json:"kind"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches another *DomainError by kind and, when set on the target, code.
// errors.Is(err, ErrConflict) therefore holds for every conflict.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Kind-only sentinels for errors.Is checks.
var (
	ErrValidation    = &DomainError{Kind: KindValidation}
	ErrNotFound      = &DomainError{Kind: KindNotFound}
	ErrAuthorization = &DomainError{Kind: KindAuthorization}
	ErrConflict      = &DomainError{Kind: KindConflict}
	ErrConcurrency   = &DomainError{Kind: KindConcurrency}
)

func Validation(code, format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// ValidationFields carries per-field messages collected by a validator.
func ValidationFields(fields map[string]string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Code:    "INVALID_INPUT",
		Message: "validation failed",
		Fields:  fields,
	}
}

func NotFound(entity string) *DomainError {
	return &DomainError{Kind: KindNotFound, Code: "NOT_FOUND", Message: entity + " not found"}
}

func Unauthorized(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindAuthorization, Code: "FORBIDDEN", Message: fmt.Sprintf(format, args...)}
}

func Conflict(code, format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Concurrency(entity string) *DomainError {
	return &DomainError{
		Kind:    KindConcurrency,
		Code:    "CONCURRENT_MODIFICATION",
		Message: entity + " was modified concurrently, reload and retry",
	}
}

// KindOf returns the kind of the first DomainError in err's chain.
func KindOf(err error) (Kind, bool) {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

func IsValidation(err error) bool    { return stderrors.Is(err, ErrValidation) }
func IsNotFound(err error) bool      { return stderrors.Is(err, ErrNotFound) }
func IsAuthorization(err error) bool { return stderrors.Is(err, ErrAuthorization) }
func IsConflict(err error) bool      { return stderrors.Is(err, ErrConflict) }
func IsConcurrency(err error) bool   { return stderrors.Is(err, ErrConcurrency) }
