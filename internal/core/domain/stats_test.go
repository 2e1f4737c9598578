package domain

import (
	"testing"
	"time"
)

func TestKnowledgeBaseStats_Summary(t *testing.T) {
	stats := KnowledgeBaseStats{
		VectorCount:   42,
		DocumentCount: 3,
		CategoryBreakdown: map[string]int{
			"model":    12,
			"document": 30,
		},
		LastUpdated: time.Now(),
	}

	summary := stats.Summary()
	expected := "42 chunks from 3 documents (document: 30, model: 12)"
	if summary != expected {
		t.Errorf("expected %q, got %q", expected, summary)
	}
}

func TestKnowledgeBaseStats_Summary_Empty(t *testing.T) {
	stats := KnowledgeBaseStats{}

	if got := stats.Summary(); got != "knowledge base is empty" {
		t.Errorf("expected empty-base summary, got %q", got)
	}
}

func TestKnowledgeBaseStats_Summary_NoBreakdown(t *testing.T) {
	stats := KnowledgeBaseStats{VectorCount: 5, DocumentCount: 1}

	if got := stats.Summary(); got != "5 chunks from 1 documents" {
		t.Errorf("unexpected summary %q", got)
	}
}
