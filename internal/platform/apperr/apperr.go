// Package apperr defines the error kinds shared by the handover services and
// their HTTP boundary. Callers branch with errors.Is against the sentinel
// kinds; the concrete *Error carries the field and user-facing message.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrValidation    = errors.New("validation failed")
	ErrSummarization = errors.New("summarization failed")
)

// Error is a classified application error.
type Error struct {
	Kind    error
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// PublicMessage is the text safe to return to an API caller.
func (e *Error) PublicMessage() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// NotFound reports that the named entity does not exist.
func NotFound(entity string, id any) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s %v not found", entity, id)}
}

// Forbidden reports an authorization failure.
func Forbidden(message string) *Error {
	return &Error{Kind: ErrForbidden, Message: message}
}

// Validation reports malformed input on a single field.
func Validation(field, message string) *Error {
	return &Error{Kind: ErrValidation, Field: field, Message: message}
}

// Summarization wraps a failure of the external text generation service.
// The wrapped cause is kept for logging only.
func Summarization(cause error) *Error {
	return &Error{Kind: ErrSummarization, Message: "AI 요약 생성에 실패했습니다", Err: cause}
}

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
