package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// stackDepth is the number of caller frames recorded on a new Error.
const stackDepth = 10

// Error is a coded error. Message defaults to the code's text, Details is
// surfaced in response envelopes and Stack is logged for 5xx responses.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
	Stack   string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.Message()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func build(code ErrorCode, msg string, cause error, stack string) *Error {
	if stack == "" {
		stack = captureStack(3)
	}
	return &Error{
		Code:    code,
		Message: msg,
		Details: make(map[string]any),
		Err:     cause,
		Stack:   stack,
	}
}

// New returns an Error carrying the default message of code.
func New(code ErrorCode) *Error {
	return build(code, code.Message(), nil, "")
}

// Newf returns an Error with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return build(code, fmt.Sprintf(format, args...), nil, "")
}

// Wrap re-codes err. A wrapped *Error keeps its message and stack so the
// origin of the failure stays visible in logs.
func Wrap(err error, code ErrorCode) *Error {
	if err == nil {
		return nil
	}
	var inner *Error
	if stderrors.As(err, &inner) {
		return build(code, inner.Message, err, inner.Stack)
	}
	return build(code, err.Error(), err, "")
}

// Wrapf re-codes err under a new message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return build(code, fmt.Sprintf(format, args...), err, "")
}

func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

func (e *Error) WithMessagef(format string, args ...any) *Error {
	e.Message = fmt.Sprintf(format, args...)
	return e
}

func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// GetCode returns the code of the outermost *Error in err's chain,
// Success for nil and InternalServerError for foreign errors.
func GetCode(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalServerError
}

// GetError returns the outermost *Error in err's chain. Foreign errors are
// wrapped as InternalServerError.
func GetError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return build(InternalServerError, err.Error(), err, "")
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}

// ValidationError reports a rejected field. Field and reason are also
// attached as details.
func ValidationError(field, reason string) *Error {
	return New(ValidationFailed).
		WithMessagef("%s: %s", field, reason).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

func captureStack(skip int) string {
	var pcs [stackDepth]uintptr
	n := runtime.Callers(skip+1, pcs[:])
	if n == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			fmt.Fprintf(&b, "\n\t%s:%d %s", frame.File, frame.Line, frame.Function)
		}
		if !more {
			break
		}
	}
	return b.String()
}
