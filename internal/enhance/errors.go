package enhance

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// ErrorType categorizes enhancement failures. Each type maps to one HTTP status.
type ErrorType int

const (
	// ErrTypeUnknown is an unclassified internal failure.
	ErrTypeUnknown ErrorType = iota
	// ErrTypeValidation indicates a malformed inbound request.
	ErrTypeValidation
	// ErrTypeSubmission indicates the upstream rejected task creation.
	ErrTypeSubmission
	// ErrTypePoll indicates a status check returned an error response.
	ErrTypePoll
	// ErrTypeTaskFailed indicates the upstream task reached the fail state.
	ErrTypeTaskFailed
	// ErrTypeEmptyResult indicates a successful task without result URLs.
	ErrTypeEmptyResult
	// ErrTypeTimeout indicates an outbound call timed out or the poll budget ran out.
	ErrTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrTypeValidation:
		return "validation"
	case ErrTypeSubmission:
		return "submission"
	case ErrTypePoll:
		return "poll"
	case ErrTypeTaskFailed:
		return "task_failed"
	case ErrTypeEmptyResult:
		return "empty_result"
	case ErrTypeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ValidationMessage is the fixed client-facing message for rejected payloads.
const ValidationMessage = "Missing required fields: prompt and image_urls array are required"

// Error is returned by every Client operation that fails.
type Error struct {
	Type    ErrorType
	Message string
	TaskID  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TypeOf returns the ErrorType carried by err, or ErrTypeUnknown.
func TypeOf(err error) ErrorType {
	var enhErr *Error
	if errors.As(err, &enhErr) {
		return enhErr.Type
	}
	if isTimeout(err) {
		return ErrTypeTimeout
	}
	return ErrTypeUnknown
}

// HTTPStatus maps an enhancement error to the status code returned to the browser.
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrTypeValidation, ErrTypeSubmission:
		return http.StatusBadRequest
	case ErrTypeTimeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// newError builds an *Error, promoting transport timeouts to ErrTypeTimeout so
// they are reported as 408 regardless of which call produced them.
func newError(typ ErrorType, taskID, msg string, err error) *Error {
	if err != nil && isTimeout(err) {
		typ = ErrTypeTimeout
	}
	return &Error{Type: typ, Message: msg, TaskID: taskID, Err: err}
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
