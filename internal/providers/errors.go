package providers

import "fmt"

// CallError is a fatal failure calling the chat endpoint: authentication,
// malformed request, or persistent transport failure after retries. The loop
// does not retry these; they terminate the current run.
type CallError struct {
	Provider string
	Status   int // HTTP status, 0 for transport-level failures
	Message  string
}

func (e *CallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("llm call failed (%s, status %d): %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("llm call failed (%s): %s", e.Provider, e.Message)
}

// retryableStatus reports whether an HTTP status indicates a transient
// condition worth retrying: rate limits and server-side errors.
func retryableStatus(code int) bool {
	return code == 429 || (code >= 500 && code < 600)
}
