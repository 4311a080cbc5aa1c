// Package report renders an analysis result to a file in one of the
// supported output formats.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rulehound/rulehound/internal/rules"
)

// Format names an output encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q (want markdown, json, or yaml)", s)
}

// document is the serialized shape for json and yaml output. The summary is
// recomputed at write time so the counts always match the rule list.
type document struct {
	AnalysisDate string               `json:"analysisDate" yaml:"analysisDate"`
	Summary      rules.Summary        `json:"summary" yaml:"summary"`
	Rules        []rules.BusinessRule `json:"rules" yaml:"rules"`
}

// Write renders res to path in the given format, creating parent
// directories as needed.
func Write(res *rules.AnalysisResult, path string, format Format) error {
	data, err := Render(res, format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Render serializes res in the given format.
func Render(res *rules.AnalysisResult, format Format) ([]byte, error) {
	doc := document{
		AnalysisDate: res.AnalysisDate.UTC().Format("2006-01-02T15:04:05Z"),
		Summary:      res.Summary(),
		Rules:        res.Rules,
	}
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json report: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode yaml report: %w", err)
		}
		return data, nil
	case FormatMarkdown:
		return renderMarkdown(res), nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

func renderMarkdown(res *rules.AnalysisResult) []byte {
	var b strings.Builder
	sum := res.Summary()

	b.WriteString("# Business Rules\n\n")
	fmt.Fprintf(&b, "Analyzed: %s\n\n", res.AnalysisDate.UTC().Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "| Total | High priority | User facing |\n|---|---|---|\n| %d | %d | %d |\n\n",
		sum.Total, sum.HighPriority, sum.UserFacing)

	for _, cat := range categories(res.Rules) {
		fmt.Fprintf(&b, "## %s\n\n", cat)
		for _, r := range res.Rules {
			if categoryOf(r) != cat {
				continue
			}
			fmt.Fprintf(&b, "### %s: %s\n\n", r.ID, r.Title)
			fmt.Fprintf(&b, "%s\n\n", r.Description)
			fmt.Fprintf(&b, "- Priority: %s\n", r.Priority)
			fmt.Fprintf(&b, "- User facing: %t\n", r.UserFacing)
			for _, ref := range r.SourceRefs {
				if ref.LineRange != "" {
					fmt.Fprintf(&b, "- Source: %s:%s\n", ref.FilePath, ref.LineRange)
				} else {
					fmt.Fprintf(&b, "- Source: %s\n", ref.FilePath)
				}
			}
			b.WriteString("\n")
		}
	}
	return []byte(b.String())
}

func categoryOf(r rules.BusinessRule) string {
	if r.Category == "" {
		return "Uncategorized"
	}
	return r.Category
}

// categories returns the distinct categories in first-seen order, with
// uncategorized rules grouped under "Uncategorized".
func categories(list []rules.BusinessRule) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range list {
		cat := categoryOf(r)
		if !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}
	return out
}
