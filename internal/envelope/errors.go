package envelope

import (
	"errors"
	"fmt"
)

// ScriptError reports a malformed Operation.
//
// Scripting errors are precondition violations caught before dispatch; they
// are never produced by the network and never become an Outcome.
type ScriptError struct {
	// Code identifies the error category.
	Code ScriptErrorCode

	// Field names the offending Operation field.
	Field string

	// Message is a human-readable description.
	Message string
}

// ScriptErrorCode categorizes scripting errors.
type ScriptErrorCode string

const (
	// ErrCodeMissingField indicates a required field is empty.
	ErrCodeMissingField ScriptErrorCode = "MISSING_FIELD"

	// ErrCodeConflictingTarget indicates both a path and an object reference are set.
	ErrCodeConflictingTarget ScriptErrorCode = "CONFLICTING_TARGET"

	// ErrCodeUnsupportedStyle indicates a style other than rest or rpc.
	ErrCodeUnsupportedStyle ScriptErrorCode = "UNSUPPORTED_STYLE"

	// ErrCodeUnsupportedMethod indicates an HTTP method outside GET, POST, DELETE.
	ErrCodeUnsupportedMethod ScriptErrorCode = "UNSUPPORTED_METHOD"

	// ErrCodeInvalidPath indicates a resource path that is not absolute.
	ErrCodeInvalidPath ScriptErrorCode = "INVALID_PATH"

	// ErrCodeInvalidPayload indicates a payload that does not fit the operation.
	ErrCodeInvalidPayload ScriptErrorCode = "INVALID_PAYLOAD"

	// ErrCodeInvalidPolicy indicates an unknown error policy.
	ErrCodeInvalidPolicy ScriptErrorCode = "INVALID_POLICY"
)

// Error implements the error interface.
func (e *ScriptError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newScriptError(code ScriptErrorCode, field, message string) *ScriptError {
	return &ScriptError{Code: code, Field: field, Message: message}
}

// IsScriptError returns true if err is or wraps a *ScriptError.
func IsScriptError(err error) bool {
	var se *ScriptError
	return errors.As(err, &se)
}
