package mcp

import "fmt"

// DiscoveryError means a tool server could not be brought up or returned a
// malformed catalog. It is fatal: the run aborts before any model call.
type DiscoveryError struct {
	Server string
	Err    error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("tool discovery failed for server %q: %v", e.Server, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }
