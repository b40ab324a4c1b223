package mcp

import "fmt"

// The gateway's error taxonomy. Every one of these surfaces as a JSON-RPC
// error correlated to the request id; none terminates the connection.

// ErrSessionRequired is returned for any method except sessions/open that
// arrives without a session identifier.
func ErrSessionRequired() *Error {
	return &Error{Code: ErrorCodeSessionRequired, Message: "session required"}
}

// ErrSessionNotFound is returned when the session id is unknown, expired or
// already closed. An expired session is indistinguishable from one that never
// existed.
func ErrSessionNotFound(id string) *Error {
	return &Error{
		Code:    ErrorCodeSessionNotFound,
		Message: "session not found",
		Data:    map[string]string{"sessionId": id},
	}
}

// ErrSessionNotReady is returned for tool calls and tools/list before the
// handshake has completed.
func ErrSessionNotReady(state SessionState) *Error {
	return &Error{
		Code:    ErrorCodeSessionNotReady,
		Message: "session not ready",
		Data:    map[string]string{"state": state.String()},
	}
}

// ErrAlreadyInitialized is returned for a second initialize on a session.
func ErrAlreadyInitialized() *Error {
	return &Error{Code: ErrorCodeAlreadyInitialized, Message: "session already initialized"}
}

// ErrUnsupportedProtocolVersion is returned when the requested protocol
// version is not in the gateway's supported set.
func ErrUnsupportedProtocolVersion(requested string, supported []string) *Error {
	return &Error{
		Code:    ErrorCodeUnsupportedProtocol,
		Message: fmt.Sprintf("unsupported protocol version: %s", requested),
		Data:    map[string][]string{"supported": supported},
	}
}

// ErrMethodNotFound is returned for methods outside the dispatcher's closed set.
func ErrMethodNotFound(method string) *Error {
	return &Error{
		Code:    ErrorCodeMethodNotFound,
		Message: fmt.Sprintf("method not found: %s", method),
	}
}

// ErrToolNotFound is returned when tools/call names an unregistered tool.
func ErrToolNotFound(name string) *Error {
	return &Error{
		Code:    ErrorCodeToolNotFound,
		Message: fmt.Sprintf("tool not found: %s", name),
	}
}

// ErrTooManyRequests is returned when a session exceeds its inbound rate limit.
func ErrTooManyRequests() *Error {
	return &Error{Code: ErrorCodeTooManyRequests, Message: "too many requests"}
}

// ErrParse is returned for bodies that are not valid JSON.
func ErrParse(err error) *Error {
	return &Error{Code: ErrorCodeParseError, Message: "parse error", Data: err.Error()}
}

// ErrInvalidRequest is returned for envelopes that are JSON but not JSON-RPC 2.0.
func ErrInvalidRequest(reason string) *Error {
	return &Error{Code: ErrorCodeInvalidRequest, Message: "invalid request", Data: reason}
}

// ErrInvalidParams is returned when a method's params cannot be decoded.
func ErrInvalidParams(err error) *Error {
	return &Error{Code: ErrorCodeInvalidParams, Message: "invalid params", Data: err.Error()}
}

// ErrBackendUnavailable is returned when the backend cannot be reached at all.
// A retry may help.
func ErrBackendUnavailable(backend string, err error) *Error {
	return &Error{
		Code:    ErrorCodeBackendUnavailable,
		Message: fmt.Sprintf("backend unavailable: %s", backend),
		Data:    err.Error(),
	}
}

// ErrBackendTimeout is returned when the bounded per-call timeout elapsed
// before the backend answered. A retry may help.
func ErrBackendTimeout(backend string) *Error {
	return &Error{
		Code:    ErrorCodeBackendTimeout,
		Message: fmt.Sprintf("backend timeout: %s", backend),
	}
}

// ErrBackendRejected is returned when the backend answered with a non-2xx
// status. The request was delivered and refused; retrying the same call will
// not help.
func ErrBackendRejected(backend string, status int) *Error {
	return &Error{
		Code:    ErrorCodeBackendRejected,
		Message: fmt.Sprintf("backend rejected request: %s", backend),
		Data:    map[string]int{"statusCode": status},
	}
}
