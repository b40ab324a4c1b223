package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ToolHandler executes a tool. Handlers receive the raw arguments and the
// caller's context and must be safe for concurrent use from many sessions.
type ToolHandler func(ctx context.Context, args json.RawMessage, cc CallContext) (CallToolResult, error)

// Tool describes a callable tool: its registry name, human-readable
// description and the JSON schema its arguments are validated against.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
	Handler     ToolHandler     `json:"-"`
}

// ToolResultContent represents one content block returned by a tool.
type ToolResultContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallToolParams represents parameters for calling a tool.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// CallToolResult represents the result of calling a tool. Domain failures are
// reported in-band with IsError; protocol and backend failures surface as
// JSON-RPC errors instead.
type CallToolResult struct {
	Content []ToolResultContent `json:"content"`
	IsError bool                `json:"isError"`
}

// ListToolsResult represents the result of tools/list.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// TextResult builds a single-block text success result.
func TextResult(text string) CallToolResult {
	return CallToolResult{
		Content: []ToolResultContent{{Type: "text", Text: text}},
	}
}

// ToolManager maps tool names to handlers and descriptor metadata. It is
// populated at startup and read-only thereafter, so concurrent reads from
// many sessions need no locking.
type ToolManager struct {
	order []string
	tools map[string]Tool
}

// NewToolManager creates a ToolManager with the given tools, preserving their
// registration order for listing.
func NewToolManager(tools ...Tool) (*ToolManager, error) {
	tm := &ToolManager{
		tools: make(map[string]Tool, len(tools)),
	}
	for _, tool := range tools {
		if err := tm.register(tool); err != nil {
			return nil, err
		}
	}
	return tm, nil
}

func (tm *ToolManager) register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}
	if _, exists := tm.tools[tool.Name]; exists {
		return fmt.Errorf("tool already registered: %s", tool.Name)
	}

	if tool.InputSchema != nil {
		loader := gojsonschema.NewStringLoader(string(tool.InputSchema))
		if _, err := gojsonschema.NewSchema(loader); err != nil {
			return fmt.Errorf("invalid input schema for %s: %w", tool.Name, err)
		}
	}

	tm.order = append(tm.order, tool.Name)
	tm.tools[tool.Name] = tool
	return nil
}

// ListTools returns every descriptor in registration order. The order is
// stable across calls.
func (tm *ToolManager) ListTools() ListToolsResult {
	tools := make([]Tool, 0, len(tm.order))
	for _, name := range tm.order {
		tools = append(tools, tm.tools[name])
	}
	return ListToolsResult{Tools: tools}
}

// Resolve looks up a tool by name.
func (tm *ToolManager) Resolve(name string) (Tool, bool) {
	tool, ok := tm.tools[name]
	return tool, ok
}

// CallTool validates the arguments against the tool's schema and runs its
// handler. Schema violations and handler domain errors come back as IsError
// results; an unknown tool or a gateway error from the handler comes back as
// a JSON-RPC *Error.
func (tm *ToolManager) CallTool(ctx context.Context, params CallToolParams, cc CallContext) (CallToolResult, *Error) {
	tool, ok := tm.Resolve(params.Name)
	if !ok {
		return CallToolResult{}, ErrToolNotFound(params.Name)
	}

	if tool.InputSchema != nil {
		// Absent arguments validate as an empty object, so required-field
		// schemas reject them the same way as any other invalid call.
		args := params.Arguments
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		schemaLoader := gojsonschema.NewStringLoader(string(tool.InputSchema))
		documentLoader := gojsonschema.NewStringLoader(string(args))

		result, err := gojsonschema.Validate(schemaLoader, documentLoader)
		if err != nil {
			return CallToolResult{}, ErrInvalidParams(err)
		}
		if !result.Valid() {
			var errMsgs []string
			for _, desc := range result.Errors() {
				errMsgs = append(errMsgs, desc.String())
			}
			return CallToolResult{
				IsError: true,
				Content: []ToolResultContent{{
					Type: "text",
					Text: fmt.Sprintf("Schema validation failed: %s", strings.Join(errMsgs, "; ")),
				}},
			}, nil
		}
	}

	result, err := tool.Handler(ctx, params.Arguments, cc)
	if err != nil {
		var gwErr *Error
		if errors.As(err, &gwErr) {
			return CallToolResult{}, gwErr
		}
		return CallToolResult{
			IsError: true,
			Content: []ToolResultContent{{Type: "text", Text: err.Error()}},
		}, nil
	}

	return result, nil
}
