package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSummaryZeroValueIsInsufficient(t *testing.T) {
	var s Summary
	if s.Kind() != KindInsufficient {
		t.Fatalf("expected Insufficient, got %s", s.Kind())
	}
	if s.Usable() {
		t.Fatal("zero summary must not be usable")
	}
}

func TestSummaryVariantsAreExclusive(t *testing.T) {
	s := ProductSummary(Product{TheProduct: "A phone"})
	if _, ok := s.Editorial(); ok {
		t.Fatal("product summary exposed editorial fields")
	}
	if _, ok := s.FailureReason(); ok {
		t.Fatal("product summary exposed a failure reason")
	}
	if s.Lede() != "A phone" {
		t.Fatalf("unexpected lede %q", s.Lede())
	}
}

func TestSummaryJSONUsesExternallyTaggedShape(t *testing.T) {
	quote := `"It ships today" -- Jane Doe`
	story := Story{
		Title:   "Launch",
		URL:     "https://example.com/a",
		Created: "2026-02-01",
		Summary: EditorialSummary(Editorial{
			WhatsHappening: "A thing happened.",
			WhyItMatters:   "It matters.",
			Quote:          &quote,
		}),
	}

	data, err := json.Marshal(story)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"summary":{"Editorial":{"whats_happening":"A thing happened."`) {
		t.Fatalf("unexpected encoding: %s", data)
	}

	var decoded Story
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	e, ok := decoded.Summary.Editorial()
	if !ok {
		t.Fatalf("expected editorial, got %s", decoded.Summary.Kind())
	}
	if e.Quote == nil || *e.Quote != quote {
		t.Fatalf("quote not preserved: %v", e.Quote)
	}
}

func TestSummaryUnmarshalVariants(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want SummaryKind
	}{
		{"insufficient string", `"Insufficient"`, KindInsufficient},
		{"failed", `{"Failed":"timeout"}`, KindFailed},
		{"product", `{"Product":{"the_product":"X","cost":"","availability":"","platforms":"","quote":null}}`, KindProduct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Summary
			if err := json.Unmarshal([]byte(tt.in), &s); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if s.Kind() != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, s.Kind())
			}
		})
	}
}

func TestSummaryUnmarshalRejectsUnknownVariant(t *testing.T) {
	var s Summary
	if err := json.Unmarshal([]byte(`{"Success":{"points":["a"]}}`), &s); err == nil {
		t.Fatal("expected error for unknown variant")
	}
	if err := json.Unmarshal([]byte(`{"Failed":"a","Product":{}}`), &s); err == nil {
		t.Fatal("expected error for two variants")
	}
}
