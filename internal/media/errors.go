package media

import (
	"errors"
	"fmt"
)

// ErrorName is the named kind carried by a capture failure.
type ErrorName string

// Capture failure kinds.
const (
	NotAllowedError       ErrorName = "NotAllowedError"
	PermissionDeniedError ErrorName = "PermissionDeniedError" // legacy alias of NotAllowedError
	NotFoundError         ErrorName = "NotFoundError"
	NotReadableError      ErrorName = "NotReadableError"
	NotSupportedError     ErrorName = "NotSupportedError"
	AbortError            ErrorName = "AbortError"
	TypeError             ErrorName = "TypeError"
)

// Error is a failed stream request.
type Error struct {
	Name    ErrorName
	Message string
	Err     error // underlying cause, may be nil
}

// NewError returns an *Error with a formatted message.
func NewError(name ErrorName, format string, args ...any) *Error {
	return &Error{Name: name, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsPermissionDenied reports whether err is a refusal by the user or OS.
func IsPermissionDenied(err error) bool {
	var me *Error
	if !errors.As(err, &me) {
		return false
	}
	return me.Name == NotAllowedError || me.Name == PermissionDeniedError
}

// Description returns the human-readable part of err.
// For *Error it is the message without the kind prefix.
func Description(err error) string {
	if err == nil {
		return ""
	}
	var me *Error
	if errors.As(err, &me) && me.Message != "" {
		return me.Message
	}
	return err.Error()
}
