package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rulehound/rulehound/internal/providers"
)

// Registry is the flat tool catalog assembled from all connected servers.
// Registration order is preserved so the catalog presented to the model is
// deterministic across runs with the same server configuration.
type Registry struct {
	mu          sync.RWMutex
	order       []string
	tools       map[string]Tool
	diagnostics []string
	cache       *ResultCache // nil = no memoization
	truncator   *Truncator   // nil = no output truncation
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// SetCache enables per-run memoization of successful tool results.
func (r *Registry) SetCache(c *ResultCache) {
	r.cache = c
}

// SetTruncator enables token-budget truncation of tool output.
func (r *Registry) SetTruncator(t *Truncator) {
	r.truncator = t
}

// Register adds a tool to the catalog. Names must be unique across all
// servers; on collision the later-discovered tool is rejected and a
// warning-level diagnostic is recorded. Returns false when rejected.
func (r *Registry) Register(tool Tool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if existing, ok := r.tools[name]; ok {
		diag := fmt.Sprintf("tool name collision: %q from server %q rejected, keeping %q",
			name, tool.ServerName(), existing.ServerName())
		r.diagnostics = append(r.diagnostics, diag)
		slog.Warn("tool name collision",
			"tool", name,
			"rejected_server", tool.ServerName(),
			"kept_server", existing.ServerName(),
		)
		return false
	}

	r.tools[name] = tool
	r.order = append(r.order, name)
	return true
}

// Lookup returns a tool by name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Execute runs a tool by name with the given arguments. An unknown name is a
// recoverable execution error, not a panic: the result envelope is handed
// back to the model like any other failure.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) *Result {
	tool, ok := r.Lookup(name)
	if !ok {
		return ErrorResult("unknown tool: " + name)
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(name, args); ok {
			slog.Debug("tool cache hit", "tool", name)
			return cached
		}
	}

	start := time.Now()
	result := tool.Execute(ctx, args)
	duration := time.Since(start)

	if r.truncator != nil && !result.IsError {
		result = &Result{Content: r.truncator.Truncate(result.Content)}
	}

	if r.cache != nil {
		r.cache.Put(name, args, result)
	}

	slog.Debug("tool executed",
		"tool", name,
		"server", tool.ServerName(),
		"duration_ms", duration.Milliseconds(),
		"is_error", result.IsError,
	)

	return result
}

// Definitions returns tool definitions for the LLM request, in registration
// order.
func (r *Registry) Definitions() []providers.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]providers.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, ToProviderDef(r.tools[name]))
	}
	return defs
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Diagnostics returns the non-fatal warnings recorded during discovery,
// such as rejected name collisions.
func (r *Registry) Diagnostics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.diagnostics))
	copy(out, r.diagnostics)
	return out
}
