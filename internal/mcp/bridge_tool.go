package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/rulehound/rulehound/internal/tools"
)

// BridgeTool adapts an MCP tool into the tools.Tool interface. It routes
// Execute calls to the owning server, enforces the per-call timeout, and
// folds every outcome — success or failure — into a tools.Result envelope.
type BridgeTool struct {
	serverName     string
	toolName       string // original MCP tool name
	registeredName string // may include prefix: "{prefix}__{toolName}"
	description    string
	inputSchema    map[string]interface{}
	client         *mcpclient.Client
	timeout        time.Duration
	connected      *atomic.Bool
}

// NewBridgeTool creates a BridgeTool from an MCP tool definition.
func NewBridgeTool(serverName string, mcpTool mcpgo.Tool, client *mcpclient.Client, prefix string, timeout time.Duration, connected *atomic.Bool) *BridgeTool {
	name := mcpTool.Name
	registered := name
	if prefix != "" {
		registered = prefix + "__" + name
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &BridgeTool{
		serverName:     serverName,
		toolName:       name,
		registeredName: registered,
		description:    mcpTool.Description,
		inputSchema:    inputSchemaToMap(mcpTool.InputSchema),
		client:         client,
		timeout:        timeout,
		connected:      connected,
	}
}

func (t *BridgeTool) Name() string                       { return t.registeredName }
func (t *BridgeTool) Description() string                { return t.description }
func (t *BridgeTool) Parameters() map[string]interface{} { return t.inputSchema }
func (t *BridgeTool) ServerName() string                 { return t.serverName }

// OriginalName returns the MCP tool name without prefix.
func (t *BridgeTool) OriginalName() string { return t.toolName }

// Execute performs one remote call. A timeout abandons the in-flight call;
// it is not retried here — the model sees the failure and decides.
func (t *BridgeTool) Execute(ctx context.Context, args map[string]interface{}) *tools.Result {
	if t.connected != nil && !t.connected.Load() {
		return tools.FailureResult(tools.ErrUnavailable,
			fmt.Sprintf("server %q is disconnected", t.serverName))
	}

	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req := mcpgo.CallToolRequest{}
	req.Params.Name = t.toolName
	req.Params.Arguments = args

	result, err := t.client.CallTool(callCtx, req)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return tools.FailureResult(tools.ErrTimeout,
				fmt.Sprintf("tool %q timed out after %s", t.registeredName, t.timeout))
		}
		return tools.FailureResult(tools.ErrUnavailable,
			fmt.Sprintf("tool %q unreachable on server %q: %v", t.registeredName, t.serverName, err))
	}

	text := extractTextContent(result)
	if result.IsError {
		return tools.ErrorResult(text)
	}
	return tools.NewResult(text)
}

// inputSchemaToMap converts mcp.ToolInputSchema to the map format expected by
// tools.Tool.Parameters().
func inputSchemaToMap(schema mcpgo.ToolInputSchema) map[string]interface{} {
	m := map[string]interface{}{
		"type": schema.Type,
	}
	if schema.Type == "" {
		m["type"] = "object"
	}
	if len(schema.Properties) > 0 {
		m["properties"] = schema.Properties
	}
	if len(schema.Required) > 0 {
		m["required"] = schema.Required
	}
	return m
}

// extractTextContent concatenates all text content from a CallToolResult.
func extractTextContent(result *mcpgo.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	var parts []string
	for _, c := range result.Content {
		switch v := c.(type) {
		case mcpgo.TextContent:
			parts = append(parts, v.Text)
		case *mcpgo.TextContent:
			parts = append(parts, v.Text)
		default:
			parts = append(parts, fmt.Sprintf("[non-text content: %T]", c))
		}
	}
	return strings.Join(parts, "\n")
}
