package apperror

import "errors"

type Code string

const (
	CodeValidation          Code = "validation"
	CodeNotFound            Code = "not_found"
	CodeConflict            Code = "conflict"
	CodeCircularReference   Code = "circular_reference"
	CodeOverlap             Code = "overlap"
	CodeInvalidRange        Code = "invalid_range"
	CodeIneligibleHolder    Code = "ineligible_holder"
	CodeConcurrencyConflict Code = "concurrency_conflict"
	CodeInternal            Code = "internal"
)

type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// WithDetail attaches diagnostic data that is surfaced to callers alongside the message.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func GetCode(err error) Code {
	if err == nil {
		return ""
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return CodeInternal
}

func Is(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}

// Retryable reports whether the operation that produced err may be safely re-run.
// Only store serialization failures qualify; every other code is a deterministic rejection.
func Retryable(err error) bool {
	return Is(err, CodeConcurrencyConflict)
}
