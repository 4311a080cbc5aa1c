package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	defaultHTTPTimeout = 120 * time.Second
	defaultMaxRetries  = 3
	defaultRetryDelay  = time.Second
)

// OpenAIProvider speaks the OpenAI-compatible chat completions protocol.
// It works against any endpoint implementing that wire format (OpenAI, Azure,
// Ollama, vLLM, LM Studio, proxies).
type OpenAIProvider struct {
	name         string
	apiKey       string
	apiBase      string
	defaultModel string
	maxTokens    int
	client       *http.Client
	limiter      *rate.Limiter
	maxRetries   int
	retryDelay   time.Duration
}

// NewOpenAIProvider creates a provider for the given endpoint. The limiter
// paces requests client-side (1 req/s, burst 2) so rapid tool loops stay
// under typical rate limits.
func NewOpenAIProvider(name, apiKey, apiBase, defaultModel string) *OpenAIProvider {
	return &OpenAIProvider{
		name:         name,
		apiKey:       apiKey,
		apiBase:      strings.TrimRight(apiBase, "/"),
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: defaultHTTPTimeout},
		limiter:      rate.NewLimiter(rate.Limit(1), 2),
		maxRetries:   defaultMaxRetries,
		retryDelay:   defaultRetryDelay,
	}
}

// SetMaxTokens sets the default max_tokens sent when the request leaves it
// unset.
func (p *OpenAIProvider) SetMaxTokens(n int) { p.maxTokens = n }

// SetRateLimit overrides the default request pacing. rps <= 0 disables
// client-side pacing.
func (p *OpenAIProvider) SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		p.limiter = nil
		return
	}
	p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

func (p *OpenAIProvider) Name() string { return p.name }

// --- wire format ---

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireRequest struct {
	Model     string           `json:"model"`
	Messages  []wireMessage    `json:"messages"`
	Tools     []ToolDefinition `json:"tools,omitempty"`
	MaxTokens int              `json:"max_tokens,omitempty"`
}

type wireResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Chat sends one request and returns the parsed assistant response. Transient
// failures (429, 5xx, transport errors) are retried with exponential backoff;
// anything else fails immediately as a *CallError.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(p.buildWireRequest(req))
	if err != nil {
		return nil, &CallError{Provider: p.name, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	url := p.apiBase + "/chat/completions"
	slog.Debug("llm request", "provider", p.name, "messages", len(req.Messages), "tools", len(req.Tools), "bytes", len(body))

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.retryDelay * time.Duration(1<<uint(attempt-1))
			slog.Debug("llm retry", "provider", p.name, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, retryable, err := p.doRequest(ctx, url, body)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, lastErr
}

func (p *OpenAIProvider) buildWireRequest(req ChatRequest) wireRequest {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.maxTokens
	}

	w := wireRequest{
		Model:     model,
		Tools:     CleanToolSchemas(req.Tools),
		MaxTokens: maxTokens,
		Messages:  make([]wireMessage, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		wm := wireMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			var wc wireToolCall
			wc.ID = tc.ID
			wc.Type = "function"
			wc.Function.Name = tc.Name
			wc.Function.Arguments = tc.Arguments
			wm.ToolCalls = append(wm.ToolCalls, wc)
		}
		w.Messages = append(w.Messages, wm)
	}
	return w
}

// doRequest performs a single HTTP round-trip. The second return value
// reports whether the failure is worth retrying.
func (p *OpenAIProvider) doRequest(ctx context.Context, url string, body []byte) (*ChatResponse, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, &CallError{Provider: p.name, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	start := time.Now()
	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, true, &CallError{Provider: p.name, Message: err.Error()}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, true, &CallError{Provider: p.name, Message: "read response: " + err.Error()}
	}

	slog.Debug("llm response",
		"provider", p.name,
		"status", httpResp.StatusCode,
		"bytes", len(respBody),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if httpResp.StatusCode != http.StatusOK {
		cerr := &CallError{
			Provider: p.name,
			Status:   httpResp.StatusCode,
			Message:  truncateForError(string(respBody)),
		}
		return nil, retryableStatus(httpResp.StatusCode), cerr
	}

	var wr wireResponse
	if err := json.Unmarshal(respBody, &wr); err != nil {
		return nil, false, &CallError{Provider: p.name, Message: "parse response: " + err.Error()}
	}
	if wr.Error != nil {
		return nil, false, &CallError{Provider: p.name, Message: fmt.Sprintf("%s (type=%s)", wr.Error.Message, wr.Error.Type)}
	}
	if len(wr.Choices) == 0 {
		return nil, false, &CallError{Provider: p.name, Message: "response contained no choices"}
	}

	choice := wr.Choices[0]
	out := &ChatResponse{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
	}
	if wr.Usage != nil {
		out.Usage = *wr.Usage
	}
	for _, wc := range choice.Message.ToolCalls {
		id := wc.ID
		if id == "" {
			// Some backends omit call ids; synthesize one so tool results
			// can still be correlated.
			id = "call_" + uuid.NewString()
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        id,
			Name:      wc.Function.Name,
			Arguments: wc.Function.Arguments,
		})
	}
	return out, false, nil
}

func truncateForError(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 500 {
		return s[:500] + "..."
	}
	return s
}
