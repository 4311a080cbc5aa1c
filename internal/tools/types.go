package tools

import (
	"context"

	"github.com/rulehound/rulehound/internal/providers"
)

// Tool is the interface every catalog entry implements. Tools are discovered
// from external MCP servers at startup and are immutable afterwards.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema describing the tool's arguments.
	Parameters() map[string]interface{}
	// ServerName identifies the external server that owns this tool.
	ServerName() string
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// ToProviderDef converts a Tool to a providers.ToolDefinition for LLM APIs.
func ToProviderDef(t Tool) providers.ToolDefinition {
	return providers.ToolDefinition{
		Type: "function",
		Function: providers.ToolFunctionSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}
