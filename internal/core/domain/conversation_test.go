package domain

import "testing"

func TestTailTurns(t *testing.T) {
	turns := []ConversationTurn{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "second"},
		{Role: RoleUser, Content: "third"},
		{Role: RoleAssistant, Content: "fourth"},
	}

	tests := []struct {
		name     string
		n        int
		expected int
		first    string
	}{
		{"all turns fit", 10, 4, "first"},
		{"exact bound", 4, 4, "first"},
		{"truncated to suffix", 2, 2, "third"},
		{"single turn", 1, 1, "fourth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TailTurns(turns, tt.n)
			if len(got) != tt.expected {
				t.Fatalf("expected %d turns, got %d", tt.expected, len(got))
			}
			if got[0].Content != tt.first {
				t.Errorf("expected first turn %q, got %q", tt.first, got[0].Content)
			}
		})
	}
}

func TestTailTurns_Empty(t *testing.T) {
	if got := TailTurns(nil, 6); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
	if got := TailTurns([]ConversationTurn{{Role: RoleUser, Content: "x"}}, 0); got != nil {
		t.Errorf("expected nil for zero bound, got %v", got)
	}
}

func TestRole_IsValid(t *testing.T) {
	if !RoleUser.IsValid() || !RoleAssistant.IsValid() {
		t.Error("expected user and assistant roles to be valid")
	}
	if Role("system").IsValid() {
		t.Error("expected system role to be invalid in conversation turns")
	}
}
