package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// KnowledgeBaseStats is a derived read-only view over a vector index.
// Recomputed on demand, never persisted separately.
type KnowledgeBaseStats struct {
	VectorCount       int            `json:"vector_count"`
	DocumentCount     int            `json:"document_count"`
	CategoryBreakdown map[string]int `json:"category_breakdown"`
	LastUpdated       time.Time      `json:"last_updated"`
}

// Summary renders the stats as a single human-readable line.
// Categories are listed in alphabetical order so output is stable.
func (s KnowledgeBaseStats) Summary() string {
	if s.VectorCount == 0 {
		return "knowledge base is empty"
	}

	categories := make([]string, 0, len(s.CategoryBreakdown))
	for category := range s.CategoryBreakdown {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	parts := make([]string, 0, len(categories))
	for _, category := range categories {
		parts = append(parts, fmt.Sprintf("%s: %d", category, s.CategoryBreakdown[category]))
	}

	summary := fmt.Sprintf("%d chunks from %d documents", s.VectorCount, s.DocumentCount)
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}
	return summary
}
