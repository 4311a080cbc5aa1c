// Package rules defines the business-rule model the analysis produces and
// the aggregation of the model's final structured emission into it.
package rules

import "time"

// Priority is the importance bucket of a rule.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the three allowed values.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// SourceRef points at the code a rule was extracted from.
type SourceRef struct {
	FilePath  string `json:"filePath" yaml:"filePath"`
	LineRange string `json:"lineRange,omitempty" yaml:"lineRange,omitempty"` // e.g. "120-148"
}

// BusinessRule is one structured finding: a behavior, constraint, or policy
// extracted from the analyzed codebase. IDs are unique within a result set.
type BusinessRule struct {
	ID          string      `json:"id" yaml:"id"`
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description" yaml:"description"`
	Category    string      `json:"category" yaml:"category"`
	Priority    Priority    `json:"priority" yaml:"priority"`
	UserFacing  bool        `json:"userFacing" yaml:"userFacing"`
	SourceRefs  []SourceRef `json:"sourceRefs,omitempty" yaml:"sourceRefs,omitempty"`
}

// Summary holds the derived counts for a rule set. It is never stored — it
// is recomputed from the rule sequence on demand so it cannot drift.
type Summary struct {
	Total        int `json:"total" yaml:"total"`
	HighPriority int `json:"highPriority" yaml:"highPriority"`
	UserFacing   int `json:"userFacing" yaml:"userFacing"`
}

// AnalysisResult is the finished output of one run.
type AnalysisResult struct {
	AnalysisDate time.Time      `json:"analysisDate" yaml:"analysisDate"`
	Rules        []BusinessRule `json:"rules" yaml:"rules"`
}

// Summary recomputes the counts from the current rule sequence. Counts
// claimed by the model in its emission are never trusted.
func (r *AnalysisResult) Summary() Summary {
	s := Summary{Total: len(r.Rules)}
	for _, rule := range r.Rules {
		if rule.Priority == PriorityHigh {
			s.HighPriority++
		}
		if rule.UserFacing {
			s.UserFacing++
		}
	}
	return s
}
