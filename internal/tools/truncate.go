package tools

import (
	"fmt"
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
)

// truncationEncoding is the BPE encoding used for budget accounting. The
// exact tokenizer of the target model is unknown here; cl100k_base is close
// enough for a budget cutoff.
const truncationEncoding = "cl100k_base"

// Truncator cuts oversized tool output to a token budget so a single large
// file read cannot blow the model's context window.
type Truncator struct {
	enc   *tiktoken.Tiktoken // nil = heuristic fallback
	limit int
}

// NewTruncator creates a truncator with the given token limit. When the BPE
// encoding cannot be loaded (e.g. offline), a bytes/4 heuristic is used.
func NewTruncator(limit int) *Truncator {
	enc, err := tiktoken.GetEncoding(truncationEncoding)
	if err != nil {
		slog.Warn("tiktoken encoding unavailable, using byte heuristic", "error", err)
		enc = nil
	}
	return &Truncator{enc: enc, limit: limit}
}

// Truncate returns s unchanged when it fits the budget, otherwise the leading
// portion plus an explicit truncation notice the model can see.
func (t *Truncator) Truncate(s string) string {
	if t == nil || t.limit <= 0 || s == "" {
		return s
	}

	if t.enc == nil {
		// Rough heuristic: ~4 bytes per token.
		maxBytes := t.limit * 4
		if len(s) <= maxBytes {
			return s
		}
		return s[:maxBytes] + fmt.Sprintf("\n[truncated: first ~%d of ~%d tokens shown]", t.limit, len(s)/4)
	}

	toks := t.enc.Encode(s, nil, nil)
	if len(toks) <= t.limit {
		return s
	}
	head := t.enc.Decode(toks[:t.limit])
	return head + fmt.Sprintf("\n[truncated: first %d of %d tokens shown]", t.limit, len(toks))
}
