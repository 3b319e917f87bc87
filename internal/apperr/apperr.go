package apperr

import (
	"errors"
	"fmt"
)

// Code categorizes an error for the caller. Values match the callable-function
// status names the web client already understands.
type Code string

const (
	CodeInvalidArgument    Code = "invalid-argument"
	CodeNotFound           Code = "not-found"
	CodePermissionDenied   Code = "permission-denied"
	CodeUnauthenticated    Code = "unauthenticated"
	CodeFailedPrecondition Code = "failed-precondition"
	CodeInternal           Code = "internal"
)

// Error is a categorized error carrying a user-facing message.
type Error struct {
	Code    Code
	Message string
	Err     error // Underlying cause, never shown to users
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a categorized error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a categorized error around a cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// MessageOf returns the user-facing message, hiding internal details.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != CodeInternal {
		return e.Message
	}
	return "일시적인 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."
}

// Common messages shared across packages.
const (
	MsgLoginRequired    = "로그인이 필요합니다."
	MsgRequestNotFound  = "요청서를 찾을 수 없습니다."
	MsgNoPermission     = "권한이 없습니다."
	MsgAlreadyProcessed = "이미 처리된 요청입니다."
)
