package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/caradhras-io/commerce-mcp-gateway/mcp"
)

// PingTool answers "pong". It needs no credential and is the cheapest way for
// a client to check the gateway is alive end to end.
func PingTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ping",
		Description: "Liveness probe for the gateway itself. Returns the literal string pong.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"context": {
					"type": "object",
					"description": "Call context carrying the jwt credential and the x-request-id correlation id"
				}
			}
		}`),
		Handler: func(ctx context.Context, args json.RawMessage, cc mcp.CallContext) (mcp.CallToolResult, error) {
			return mcp.TextResult("pong"), nil
		},
	}
}

// InfoTool reports the gateway deployment descriptor as JSON.
func InfoTool(info Info) mcp.Tool {
	return mcp.Tool{
		Name:        "mcp_info",
		Description: "Describe this gateway deployment: version, account, backend URLs and session settings.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"context": {
					"type": "object",
					"description": "Call context carrying the jwt credential and the x-request-id correlation id"
				}
			}
		}`),
		Handler: func(ctx context.Context, args json.RawMessage, cc mcp.CallContext) (mcp.CallToolResult, error) {
			encoded, err := json.Marshal(info)
			if err != nil {
				return mcp.CallToolResult{}, fmt.Errorf("encoding gateway info: %w", err)
			}
			return mcp.TextResult(string(encoded)), nil
		},
	}
}
