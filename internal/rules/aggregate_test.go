package rules

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const validEmission = `{
	"businessRules": [
		{
			"id": "BR-001",
			"title": "Order minimum",
			"description": "Orders under $10 are rejected at checkout.",
			"category": "validation",
			"priority": "high",
			"userFacing": true,
			"sourceRefs": [{"filePath": "checkout/cart.go", "lineRange": "88-104"}]
		},
		{
			"id": "BR-002",
			"title": "Stale session purge",
			"description": "Sessions idle for 30 days are deleted by the nightly job.",
			"category": "workflow",
			"priority": "low",
			"userFacing": false
		}
	]
}`

func TestAggregateValidEmission(t *testing.T) {
	got, err := Aggregator{}.Aggregate(validEmission)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(got))
	}
	if got[0].ID != "BR-001" || got[0].Priority != PriorityHigh || !got[0].UserFacing {
		t.Errorf("first rule wrong: %+v", got[0])
	}
	if len(got[0].SourceRefs) != 1 || got[0].SourceRefs[0].FilePath != "checkout/cart.go" {
		t.Errorf("source refs lost: %+v", got[0].SourceRefs)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	a, err := Aggregator{}.Aggregate(validEmission)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Aggregator{}.Aggregate(validEmission)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("aggregating the same emission twice must yield identical sequences")
	}
}

func TestAggregateDedupesFirstWins(t *testing.T) {
	raw := `{"businessRules": [
		{"id": "BR-001", "title": "first", "description": "d", "category": "c", "priority": "low", "userFacing": false},
		{"id": "BR-001", "title": "second", "description": "d", "category": "c", "priority": "high", "userFacing": true}
	]}`
	got, err := Aggregator{}.Aggregate(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 rule after dedupe, got %d", len(got))
	}
	if got[0].Title != "first" {
		t.Errorf("earlier occurrence must win, got %q", got[0].Title)
	}
}

func TestAggregateRejectsInvalidPriority(t *testing.T) {
	raw := `{"businessRules": [
		{"id": "BR-001", "title": "t", "description": "d", "category": "c", "priority": "urgent", "userFacing": true}
	]}`
	_, err := Aggregator{}.Aggregate(raw)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if verr.Index != 0 || !strings.Contains(verr.Reason, "urgent") {
		t.Errorf("unexpected validation error: %+v", verr)
	}
}

func TestAggregateAcceptsMixedCasePriority(t *testing.T) {
	raw := `{"businessRules": [
		{"id": "BR-001", "title": "t", "description": "d", "category": "c", "priority": "High", "userFacing": true}
	]}`
	got, err := Aggregator{}.Aggregate(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Priority != PriorityHigh {
		t.Errorf("expected normalized high, got %s", got[0].Priority)
	}
}

func TestAggregateRejectsNonBooleanUserFacing(t *testing.T) {
	raw := `{"businessRules": [
		{"id": "BR-001", "title": "t", "description": "d", "category": "c", "priority": "low", "userFacing": "yes"}
	]}`
	_, err := Aggregator{}.Aggregate(raw)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Reason, "userFacing") {
		t.Errorf("unexpected reason: %s", verr.Reason)
	}
}

func TestAggregateRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"id", `{"businessRules": [{"title": "t", "description": "d", "category": "c", "priority": "low", "userFacing": true}]}`, "id"},
		{"title", `{"businessRules": [{"id": "x", "description": "d", "category": "c", "priority": "low", "userFacing": true}]}`, "title"},
		{"description", `{"businessRules": [{"id": "x", "title": "t", "category": "c", "priority": "low", "userFacing": true}]}`, "description"},
		{"category", `{"businessRules": [{"id": "x", "title": "t", "description": "d", "priority": "low", "userFacing": true}]}`, "category"},
		{"userFacing", `{"businessRules": [{"id": "x", "title": "t", "description": "d", "category": "c", "priority": "low"}]}`, "userFacing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Aggregator{}.Aggregate(tc.raw)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if !strings.Contains(verr.Reason, tc.want) {
				t.Errorf("expected reason to mention %q, got %s", tc.want, verr.Reason)
			}
		})
	}
}

func TestAggregateRejectsDocumentLevelProblems(t *testing.T) {
	for _, raw := range []string{"not json at all", `{"rules": []}`} {
		_, err := Aggregator{}.Aggregate(raw)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected *ValidationError for %q, got %v", raw, err)
		}
		if verr.Index != -1 {
			t.Errorf("document-level error should use index -1, got %d", verr.Index)
		}
	}
}

func TestAggregateEmptyArrayIsValid(t *testing.T) {
	got, err := Aggregator{}.Aggregate(`{"businessRules": []}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty rule set, got %d", len(got))
	}
}

func TestExtractEmissionFencedBlock(t *testing.T) {
	text := "Here are my findings:\n```json\n" + validEmission + "\n```\nDone."
	raw, ok := ExtractEmission(text)
	if !ok {
		t.Fatal("expected to find the emission")
	}
	if _, err := (Aggregator{}).Aggregate(raw); err != nil {
		t.Errorf("extracted emission should aggregate cleanly: %v", err)
	}
}

func TestExtractEmissionBareObject(t *testing.T) {
	raw, ok := ExtractEmission(validEmission)
	if !ok {
		t.Fatal("expected to find the bare emission")
	}
	if !strings.Contains(raw, "BR-001") {
		t.Errorf("unexpected extraction: %s", raw)
	}
}

func TestExtractEmissionHandlesBracesInStrings(t *testing.T) {
	text := `prefix {"businessRules": [{"id": "BR-001", "title": "a {weird} title", "description": "d", "category": "c", "priority": "low", "userFacing": true}]} suffix`
	raw, ok := ExtractEmission(text)
	if !ok {
		t.Fatal("expected to find the emission")
	}
	got, err := Aggregator{}.Aggregate(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Title != "a {weird} title" {
		t.Errorf("braces inside strings mishandled: %q", got[0].Title)
	}
}

func TestExtractEmissionAbsent(t *testing.T) {
	for _, text := range []string{"", "just prose", `{"other": 1}`} {
		if _, ok := ExtractEmission(text); ok {
			t.Errorf("expected no emission in %q", text)
		}
	}
}

func TestSummaryRecomputesCounts(t *testing.T) {
	res := &AnalysisResult{Rules: []BusinessRule{
		{ID: "a", Priority: PriorityHigh, UserFacing: true},
		{ID: "b", Priority: PriorityHigh, UserFacing: false},
		{ID: "c", Priority: PriorityLow, UserFacing: true},
	}}
	sum := res.Summary()
	if sum.Total != 3 || sum.HighPriority != 2 || sum.UserFacing != 2 {
		t.Errorf("unexpected summary %+v", sum)
	}

	res.Rules = res.Rules[:1]
	sum = res.Summary()
	if sum.Total != 1 || sum.HighPriority != 1 || sum.UserFacing != 1 {
		t.Errorf("summary must follow the rule sequence, got %+v", sum)
	}
}
