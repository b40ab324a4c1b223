package mcp

import (
	"bytes"
	"encoding/json"
)

// JSONRPCVersion is the only protocol version accepted in envelopes.
const JSONRPCVersion = "2.0"

// JSON-RPC 2.0 error codes
const (
	ErrorCodeParseError     = -32700
	ErrorCodeInvalidRequest = -32600
	ErrorCodeMethodNotFound = -32601
	ErrorCodeInvalidParams  = -32602
	ErrorCodeInternal       = -32603
)

// Gateway error codes, kept in the implementation-defined server range.
const (
	ErrorCodeSessionRequired     = -32001
	ErrorCodeSessionNotFound     = -32002
	ErrorCodeSessionNotReady     = -32003
	ErrorCodeAlreadyInitialized  = -32004
	ErrorCodeUnsupportedProtocol = -32005
	ErrorCodeToolNotFound        = -32006
	ErrorCodeTooManyRequests     = -32007
	ErrorCodeBackendUnavailable  = -32010
	ErrorCodeBackendTimeout      = -32011
	ErrorCodeBackendRejected     = -32012
)

// Method names understood by the dispatcher.
const (
	MethodSessionsOpen             = "sessions/open"
	MethodInitialize               = "initialize"
	MethodPing                     = "ping"
	MethodNotificationsInitialized = "notifications/initialized"
	MethodToolsList                = "tools/list"
	MethodToolsCall                = "tools/call"
	MethodServerInfo               = "server_info"
)

// Request represents a JSON-RPC request message.
type Request struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id"`
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params"`
}

// IsNotification reports whether the envelope carries no correlation id and
// therefore must never be answered.
func (r *Request) IsNotification() bool {
	return r.ID == nil || bytes.Equal(*r.ID, []byte("null"))
}

// Response represents a JSON-RPC response message.
type Response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id"`
	Result  interface{}      `json:"result,omitempty"`
	Error   *Error           `json:"error,omitempty"`
}

// Error represents a JSON-RPC error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Notification represents a JSON-RPC notification message.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// NewResponse creates a new response message echoing the request id.
func NewResponse(id *json.RawMessage, result interface{}) *Response {
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  result,
	}
}

// NewErrorResponse creates a new error response message.
func NewErrorResponse(id *json.RawMessage, err *Error) *Response {
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   err,
	}
}
