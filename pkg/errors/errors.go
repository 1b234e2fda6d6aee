// Package errors carries the coded error type shared by the QA engine, the
// analysis service, the sinks and the HTTP, gRPC and CLI surfaces. The code
// decides the HTTP status and whether a failed job is worth retrying.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

const maxFrames = 32

// callers formats the stack above its caller, skipping runtime frames.
func callers(skip int) string {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for f, more := frames.Next(); ; f, more = frames.Next() {
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			return sb.String()
		}
	}
}

// AppError is a coded failure. Message is safe to show a client, Detail
// names the contract, category or key involved, and Cause keeps the lower
// level error reachable through errors.Is and errors.As.
//
//	return errors.New(errors.ErrCodeUnknownCategory, "unknown category").
//		WithDetail("category=royalties")
type AppError struct {
	Code    ErrorCode
	Message string
	Detail  string
	Cause   error
	// Stack is recorded by the constructors and never rendered by Error.
	Stack string
}

// Error renders "[code] message" plus ": detail" when a detail is set. The
// cause is left out so client facing text never leaks backend errors.
func (e *AppError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithDetail returns a copy of e with Detail replaced. Nil stays nil.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	c := *e
	c.Detail = detail
	return &c
}

// WithCause returns a copy of e wrapping err. Nil stays nil.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	c := *e
	c.Cause = err
	return &c
}

func newAt(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Stack: callers(2)}
}

// New returns an AppError with no cause.
func New(code ErrorCode, message string) *AppError {
	return newAt(code, message)
}

// Wrap attaches code and message to err and returns nil for a nil err, so
// it can wrap a call inline. CodeUnknown keeps the code already in the chain.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		code = GetCode(err)
	}
	ae := newAt(code, message)
	ae.Cause = err
	return ae
}

// IsCode reports whether any AppError in the chain of err carries code,
// including ones wrapped beneath an AppError with a different code.
func IsCode(err error, code ErrorCode) bool {
	return anyCode(err, func(c ErrorCode) bool { return c == code })
}

// IsNotFound matches both the generic and the object storage not-found codes.
func IsNotFound(err error) bool {
	return anyCode(err, func(c ErrorCode) bool {
		return c == CodeNotFound || c == ErrCodeObjectNotFound
	})
}

func anyCode(err error, match func(ErrorCode) bool) bool {
	for err != nil {
		var ae *AppError
		if !errors.As(err, &ae) {
			return false
		}
		if match(ae.Code) {
			return true
		}
		err = ae.Cause
	}
	return false
}

// GetCode returns the code of the outermost AppError in the chain, CodeOK
// for nil and CodeUnknown for a chain without one.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

func NotFound(message string) *AppError { return newAt(CodeNotFound, message) }

func InvalidParam(message string) *AppError { return newAt(CodeInvalidParam, message) }

// Internal is for failures with no better code; its message is masked in
// HTTP responses.
func Internal(message string) *AppError { return newAt(CodeInternal, message) }

// RateLimit is returned to callers that exceeded the request budget.
func RateLimit(message string) *AppError { return newAt(CodeRateLimit, message) }

// InputError reports a caller precondition the QA core refuses to work
// around: score vectors of different lengths, an encoder length too small
// for the special tokens, an unusable vocabulary.
func InputError(code ErrorCode, message string) *AppError { return newAt(code, message) }

// IsInputError reports whether err carries a QA precondition code. Such
// failures repeat on every attempt with the same input.
func IsInputError(err error) bool {
	return anyCode(err, func(c ErrorCode) bool {
		switch c {
		case ErrCodeSpanScoresMismatched, ErrCodeSpanScoresEmpty,
			ErrCodeEncoderMaxLength, ErrCodeVocabularyInvalid:
			return true
		}
		return false
	})
}

//Personal.AI order the ending
