package agent

import "github.com/rulehound/rulehound/internal/providers"

// Conversation is the ordered, append-only message history for one run.
// Insertion order is semantically meaningful: it is the model's context.
type Conversation struct {
	messages []providers.Message
}

// NewConversation seeds the history with the system instructions and the
// user prompt.
func NewConversation(systemPrompt, userPrompt string) *Conversation {
	return &Conversation{
		messages: []providers.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
}

// AppendAssistant records the model's turn, including any tool call requests.
func (c *Conversation) AppendAssistant(content string, toolCalls []providers.ToolCall) {
	c.messages = append(c.messages, providers.Message{
		Role:      "assistant",
		Content:   content,
		ToolCalls: toolCalls,
	})
}

// AppendToolResult records one tool outcome, correlated to its call id.
// Failures are appended the same way as successes: a tool error is
// recoverable data for the model, not a loop error.
func (c *Conversation) AppendToolResult(callID, content string) {
	c.messages = append(c.messages, providers.Message{
		Role:       "tool",
		Content:    content,
		ToolCallID: callID,
	})
}

// AppendUser records an additional user-role message (e.g. a corrective
// nudge when the model stops without emitting findings).
func (c *Conversation) AppendUser(content string) {
	c.messages = append(c.messages, providers.Message{Role: "user", Content: content})
}

// Messages returns the history in order. The returned slice is shared; the
// loop is single-threaded per run so callers must not mutate it.
func (c *Conversation) Messages() []providers.Message {
	return c.messages
}

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.messages) }

// LastAssistantText returns the content of the most recent assistant
// message, or empty when there is none.
func (c *Conversation) LastAssistantText() string {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == "assistant" {
			return c.messages[i].Content
		}
	}
	return ""
}
