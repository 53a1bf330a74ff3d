package llmtest

import (
	"context"
	"math"
	"testing"

	"chronicle/internal/llm"
)

func cos(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return dot
}

func TestEmbedderSharedWords(t *testing.T) {
	ctx := context.Background()
	e := NewEmbedder()
	village, _ := e.Embed(ctx, "There is a location called Oakhaven. It can be described as: A quiet fishing village")
	query, _ := e.Embed(ctx, "fishing town")
	volcano, _ := e.Embed(ctx, "There is a location called Ashfall. It can be described as: A smoking volcano")

	if sim := cos(village, query); sim <= 0.3 {
		t.Fatalf("expected fishing town to match the village above 0.3, got %v", sim)
	}
	if sim := cos(volcano, query); sim != 0 {
		t.Fatalf("expected no overlap with the volcano, got %v", sim)
	}
	if n := math.Sqrt(cos(village, village)); math.Abs(n-1) > 1e-5 {
		t.Fatalf("expected unit vector, got norm %v", n)
	}
}

func TestSummarizerPrefersDetail(t *testing.T) {
	s := &Summarizer{}
	got, err := s.Merge(context.Background(),
		llm.Described{Name: "Hooded figure", Description: "A figure in a hood"},
		llm.Described{Name: "Mira", Description: "Mira is the blacksmith's daughter with a scar"},
	)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if got.Name != "Mira" {
		t.Fatalf("expected detailed name as base, got %q", got.Name)
	}
	if got.Description != "Mira is the blacksmith's daughter with a scar A figure in a hood" {
		t.Fatalf("unexpected description %q", got.Description)
	}
	if s.Calls() != 1 {
		t.Fatalf("expected one call, got %d", s.Calls())
	}
}
