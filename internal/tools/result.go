package tools

// ErrKind classifies a failed tool invocation. The kind travels back to the
// model inside the tool-result message so it can adapt (retry, pick another
// tool) instead of aborting the run.
type ErrKind string

const (
	// ErrExecution: the owning server accepted the call and reported a failure,
	// or the requested tool does not exist in the catalog.
	ErrExecution ErrKind = "tool_execution_error"
	// ErrTimeout: the call exceeded its per-call deadline and was abandoned.
	ErrTimeout ErrKind = "tool_timeout"
	// ErrUnavailable: the owning server could not be reached.
	ErrUnavailable ErrKind = "tool_server_unavailable"
)

// Result is the unified envelope returned from tool execution.
// Immutable once created: executors build a new Result per call.
type Result struct {
	Content string  `json:"content"`
	IsError bool    `json:"is_error"`
	Kind    ErrKind `json:"kind,omitempty"`
}

func NewResult(content string) *Result {
	return &Result{Content: content}
}

// ErrorResult marks a call the server executed but rejected.
func ErrorResult(message string) *Result {
	return &Result{Content: message, IsError: true, Kind: ErrExecution}
}

// FailureResult builds an error envelope with an explicit kind.
func FailureResult(kind ErrKind, message string) *Result {
	return &Result{Content: message, IsError: true, Kind: kind}
}
