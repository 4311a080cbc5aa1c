package rules

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// ValidationError means the model's final emission does not conform to the
// expected schema. The run itself completed; whether this is a hard failure
// or grounds for a corrective re-prompt is the caller's call.
type ValidationError struct {
	Index  int // rule position in the emission, -1 for document-level problems
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return "invalid emission: " + e.Reason
	}
	return fmt.Sprintf("invalid emission: rule %d: %s", e.Index, e.Reason)
}

// emissionMarker is the field whose presence identifies an assistant message
// as the terminal structured emission.
const emissionMarker = `"businessRules"`

// emission mirrors the JSON document the model is instructed to emit.
// UserFacing is json.RawMessage so a non-boolean value is detected here
// rather than swallowed by encoding/json's loose decoding.
type emission struct {
	BusinessRules []ruleEmission `json:"businessRules"`
}

type ruleEmission struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Priority    string          `json:"priority"`
	UserFacing  json.RawMessage `json:"userFacing"`
	SourceRefs  []SourceRef     `json:"sourceRefs"`
}

// ExtractEmission locates the structured emission inside an assistant
// message: either a ```json fenced block or a bare JSON object, containing a
// businessRules array. Returns the raw JSON and whether one was found.
func ExtractEmission(text string) (string, bool) {
	if !strings.Contains(text, emissionMarker) {
		return "", false
	}

	// Prefer a fenced block when present.
	if body, ok := fencedJSON(text); ok && strings.Contains(body, emissionMarker) {
		return body, true
	}

	// Fall back to the outermost balanced object around the marker.
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end := matchBrace(text, start); end > start {
			candidate := text[start : end+1]
			if strings.Contains(candidate, emissionMarker) {
				return candidate, true
			}
			start = strings.IndexByte(text[end+1:], '{')
			if start >= 0 {
				start += end + 1
			}
			continue
		}
		break
	}
	return "", false
}

func fencedJSON(text string) (string, bool) {
	for _, fence := range []string{"```json", "```"} {
		open := strings.Index(text, fence)
		if open < 0 {
			continue
		}
		rest := text[open+len(fence):]
		end := strings.Index(rest, "```")
		if end < 0 {
			continue
		}
		body := strings.TrimSpace(rest[:end])
		if strings.HasPrefix(body, "{") {
			return body, true
		}
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at start, or -1.
// String literals are skipped so braces inside descriptions don't confuse it.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Aggregator validates and normalizes the model's raw emission into the
// final rule sequence.
type Aggregator struct{}

// Aggregate parses raw (the JSON extracted by ExtractEmission), validates
// every rule, and dedups by id with the first occurrence winning. On any
// schema violation it fails with a *ValidationError and produces nothing.
// Aggregating the same emission twice yields an identical sequence.
func (Aggregator) Aggregate(raw string) ([]BusinessRule, error) {
	var doc emission
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, &ValidationError{Index: -1, Reason: "not valid JSON: " + err.Error()}
	}
	if doc.BusinessRules == nil {
		return nil, &ValidationError{Index: -1, Reason: "missing businessRules array"}
	}

	out := make([]BusinessRule, 0, len(doc.BusinessRules))
	seen := make(map[string]bool, len(doc.BusinessRules))
	for i, re := range doc.BusinessRules {
		rule, err := validateRule(i, re)
		if err != nil {
			return nil, err
		}
		if seen[rule.ID] {
			slog.Debug("duplicate rule id dropped", "id", rule.ID, "index", i)
			continue
		}
		seen[rule.ID] = true
		out = append(out, rule)
	}
	return out, nil
}

func validateRule(i int, re ruleEmission) (BusinessRule, error) {
	var zero BusinessRule
	switch {
	case re.ID == "":
		return zero, &ValidationError{Index: i, Reason: "missing required field id"}
	case re.Title == "":
		return zero, &ValidationError{Index: i, Reason: "missing required field title"}
	case re.Description == "":
		return zero, &ValidationError{Index: i, Reason: "missing required field description"}
	case re.Category == "":
		return zero, &ValidationError{Index: i, Reason: "missing required field category"}
	}

	prio := Priority(strings.ToLower(re.Priority))
	if !prio.Valid() {
		return zero, &ValidationError{Index: i, Reason: fmt.Sprintf("invalid priority %q (want low, medium, or high)", re.Priority)}
	}

	if len(re.UserFacing) == 0 {
		return zero, &ValidationError{Index: i, Reason: "missing required field userFacing"}
	}
	var userFacing bool
	if err := json.Unmarshal(re.UserFacing, &userFacing); err != nil {
		return zero, &ValidationError{Index: i, Reason: fmt.Sprintf("non-boolean userFacing: %s", re.UserFacing)}
	}

	return BusinessRule{
		ID:          re.ID,
		Title:       re.Title,
		Description: re.Description,
		Category:    re.Category,
		Priority:    prio,
		UserFacing:  userFacing,
		SourceRefs:  re.SourceRefs,
	}, nil
}
