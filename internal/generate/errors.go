package generate

import "net/http"

// StatusClientClosedRequest is the nginx-style status used when the client
// goes away before generation completes.
const StatusClientClosedRequest = 499

// malformedRequestError signals missing/invalid required request fields.
type malformedRequestError struct{ msg string }

func (e malformedRequestError) Error() string   { return e.msg }
func (e malformedRequestError) StatusCode() int { return http.StatusBadRequest }

// ErrMalformedRequest constructs a malformedRequestError.
func ErrMalformedRequest(msg string) error { return malformedRequestError{msg: msg} }

// IsMalformedRequest reports whether err indicates a bad request body (400).
func IsMalformedRequest(err error) bool {
	_, ok := err.(malformedRequestError)
	return ok
}

// clientDisconnectedError signals the client went away mid-generation.
type clientDisconnectedError struct{ id string }

func (e clientDisconnectedError) Error() string   { return "client disconnected: " + e.id }
func (e clientDisconnectedError) StatusCode() int { return StatusClientClosedRequest }

// ErrClientDisconnected constructs a clientDisconnectedError for a request id.
func ErrClientDisconnected(id string) error { return clientDisconnectedError{id: id} }

// IsClientDisconnected reports whether err indicates a client disconnect (499).
func IsClientDisconnected(err error) bool {
	_, ok := err.(clientDisconnectedError)
	return ok
}

// noOutputError signals the engine stream ended without yielding any result.
type noOutputError struct{ id string }

func (e noOutputError) Error() string   { return "engine produced no output: " + e.id }
func (e noOutputError) StatusCode() int { return http.StatusInternalServerError }

// ErrNoOutput constructs a noOutputError for a request id.
func ErrNoOutput(id string) error { return noOutputError{id: id} }

// IsNoOutput reports whether err indicates a zero-result completion.
func IsNoOutput(err error) bool {
	_, ok := err.(noOutputError)
	return ok
}

// engineFailureError wraps an internal engine error so the HTTP layer can map
// it to 502 without crashing the process.
type engineFailureError struct {
	id  string
	err error
}

func (e engineFailureError) Error() string   { return "engine failure: " + e.err.Error() }
func (e engineFailureError) Unwrap() error   { return e.err }
func (e engineFailureError) StatusCode() int { return http.StatusBadGateway }

// ErrEngineFailure wraps an engine error for a request id.
func ErrEngineFailure(id string, err error) error { return engineFailureError{id: id, err: err} }

// IsEngineFailure reports whether err indicates the engine itself failed.
func IsEngineFailure(err error) bool {
	_, ok := err.(engineFailureError)
	return ok
}

// dependencyUnavailableError signals no engine is configured/reachable so the
// HTTP layer can return 503 Service Unavailable instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string   { return e.msg }
func (e dependencyUnavailableError) StatusCode() int { return http.StatusServiceUnavailable }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing engine backend.
func IsDependencyUnavailable(err error) bool {
	_, ok := err.(dependencyUnavailableError)
	return ok
}
