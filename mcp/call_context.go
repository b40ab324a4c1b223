package mcp

import (
	"encoding/json"

	"github.com/google/uuid"
)

// CallContext is the per-request bundle of caller credential and trace
// identifier. It is built fresh for every inbound call, passed by value
// through dispatch into the backend forwarder, and never stored.
type CallContext struct {
	// Token is the opaque bearer credential forwarded to backends verbatim.
	// The gateway never issues or inspects it.
	Token string

	// RequestID correlates the inbound call with its outbound backend
	// requests. Minted when the caller did not supply one.
	RequestID string
}

// toolCallContext mirrors the `context` object tools accept in their
// arguments: a jwt plus optional metadata.
type toolCallContext struct {
	JWT       string `json:"jwt"`
	RequestID string `json:"x-request-id"`
}

// NewCallContext derives a CallContext from tool arguments and the transport
// headers. A credential embedded in the arguments' `context` object wins over
// the Authorization header; the request id falls back to the transport's and
// finally to a freshly minted one.
func NewCallContext(args json.RawMessage, bearerToken, requestID string) CallContext {
	cc := CallContext{
		Token:     bearerToken,
		RequestID: requestID,
	}

	if len(args) > 0 {
		var wrapper struct {
			Context *toolCallContext `json:"context"`
		}
		if err := json.Unmarshal(args, &wrapper); err == nil && wrapper.Context != nil {
			if wrapper.Context.JWT != "" {
				cc.Token = wrapper.Context.JWT
			}
			if wrapper.Context.RequestID != "" {
				cc.RequestID = wrapper.Context.RequestID
			}
		}
	}

	if cc.RequestID == "" {
		cc.RequestID = uuid.New().String()
	}

	return cc
}
