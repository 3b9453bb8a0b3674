package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrorQueryGeneration ErrorCode = "QUERY_GENERATION_ERROR"
	ErrorInvalidQuery    ErrorCode = "INVALID_QUERY"
	ErrorSearch          ErrorCode = "SEARCH_ERROR"
	ErrorRateLimited     ErrorCode = "RATE_LIMITED"
	ErrorInternal        ErrorCode = "INTERNAL_ERROR"
)

// ErrInvalidQuery is returned by QueryGenerator when the model signals that
// no usable search expression could be formed.
var ErrInvalidQuery = &Error{Code: ErrorInvalidQuery, Reason: "empty_query"}

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

func isRateLimited(err error) bool {
	status, ok := upstreamStatusCode(err)
	return ok && status == 429
}
