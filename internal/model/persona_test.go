package model

import (
	"errors"
	"testing"
)

func TestReviewResult_Markdown(t *testing.T) {
	r := &ReviewResult{Sections: []ReviewSection{
		{Persona: "A", Review: "Good"},
		{Persona: "B", Err: errors.New("boom")},
	}}

	want := "### 👤 A\nGood\n\n---\n\n### 👤 B\n❌ Review failed: boom"
	if got := r.Markdown(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if r.Failures() != 1 {
		t.Errorf("expected 1 failure, got %d", r.Failures())
	}
}

func TestReviewResult_MarkdownEmpty(t *testing.T) {
	r := &ReviewResult{}
	if got := r.Markdown(); got != "" {
		t.Errorf("expected empty markdown, got %q", got)
	}
}

func TestNames(t *testing.T) {
	got := Names([]Persona{{Name: "x"}, {Name: "y"}})
	if len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Errorf("unexpected names: %v", got)
	}
}
