package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData marks a transient failure: the remote produced no usable
	// answer. Callers treat it as "unknown, try again later".
	ErrNoData = errors.New("no data from pipeline")
	// ErrRejected indicates the Storage Service explicitly refused a request.
	ErrRejected = errors.New("request rejected by pipeline")
	// ErrApproval indicates the dashboard refused to approve a transfer.
	ErrApproval = errors.New("transfer approval failed")
)

// ErrorCode classifies soft failures.
type ErrorCode int

const (
	CodeUnknown         ErrorCode = -1
	CodeInvalidResponse ErrorCode = 1
	CodeParseJSON       ErrorCode = 2
	CodeServerConn      ErrorCode = 3
)

func (c ErrorCode) String() string {
	switch c {
	case CodeInvalidResponse:
		return "invalid response from server"
	case CodeParseJSON:
		return "could not parse JSON"
	case CodeServerConn:
		return "error connecting to server"
	default:
		return "unknown error"
	}
}

// Error is a soft failure from one API call. It matches ErrNoData with
// errors.Is and unwraps to the underlying cause.
type Error struct {
	Op         string
	Code       ErrorCode
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Code)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNoData}
	}
	return []error{ErrNoData, e.Err}
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) ErrorCode {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Code
	}
	return CodeUnknown
}
