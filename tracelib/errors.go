package tracelib

import "errors"

var (
	// ErrLocationNotFound has to be wrapped by provider errors if
	// provider has responded but has no location for the address.
	ErrLocationNotFound = errors.New("location is not found")

	ErrProbeFailed          = errors.New("cannot probe a route")
	ErrCircuitBreakerOpened = errors.New("circuit breaker is opened")
	ErrCircuitBreakerIgnore = errors.New("ignore this error")
)

// errorResponse is a body of failed API responses. Context is a text
// of the underlying error, if any.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Context string `json:"context"`
	} `json:"error"`
}

func newErrorResponse(message string, err error) errorResponse {
	rv := errorResponse{}
	rv.Error.Message = message

	if err != nil {
		rv.Error.Context = err.Error()
	}

	return rv
}
