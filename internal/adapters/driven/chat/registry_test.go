package chat

import (
	"errors"
	"testing"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven/mocks"
)

func TestRegistry_Empty(t *testing.T) {
	registry := NewRegistry()

	if _, err := registry.Get("openai"); !errors.Is(err, domain.ErrInvalidProvider) {
		t.Errorf("expected ErrInvalidProvider, got %v", err)
	}
	if _, err := registry.Default(); !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if len(registry.IDs()) != 0 {
		t.Errorf("expected no ids, got %v", registry.IDs())
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	registry.Register(mocks.NewMockChatProvider("ollama", "answer"))

	provider, err := registry.Get("ollama")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.ProviderID() != "ollama" {
		t.Errorf("expected ollama, got %s", provider.ProviderID())
	}

	if _, err := registry.Get("anthropic"); !errors.Is(err, domain.ErrInvalidProvider) {
		t.Errorf("expected ErrInvalidProvider for unknown id, got %v", err)
	}
}

func TestRegistry_FirstRegisteredIsDefault(t *testing.T) {
	registry := NewRegistry()
	registry.Register(mocks.NewMockChatProvider("ollama", "first"))
	registry.Register(mocks.NewMockChatProvider("openai", "second"))

	def, err := registry.Default()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.ProviderID() != "ollama" {
		t.Errorf("expected default ollama, got %s", def.ProviderID())
	}
}

func TestRegistry_SetDefault(t *testing.T) {
	registry := NewRegistry()
	registry.Register(mocks.NewMockChatProvider("ollama", "first"))
	registry.Register(mocks.NewMockChatProvider("openai", "second"))

	if err := registry.SetDefault("openai"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	def, err := registry.Default()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.ProviderID() != "openai" {
		t.Errorf("expected default openai, got %s", def.ProviderID())
	}

	if err := registry.SetDefault("anthropic"); !errors.Is(err, domain.ErrInvalidProvider) {
		t.Errorf("expected ErrInvalidProvider for unknown id, got %v", err)
	}
}

func TestRegistry_IDsSorted(t *testing.T) {
	registry := NewRegistry()
	registry.Register(mocks.NewMockChatProvider("openai", ""))
	registry.Register(mocks.NewMockChatProvider("anthropic", ""))
	registry.Register(mocks.NewMockChatProvider("ollama", ""))

	ids := registry.IDs()
	want := []string{"anthropic", "ollama", "openai"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %v", len(want), ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("expected %q at position %d, got %q", want[i], i, ids[i])
		}
	}
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	registry := NewRegistry()
	registry.Register(mocks.NewMockChatProvider("ollama", "old"))
	registry.Register(mocks.NewMockChatProvider("ollama", "new"))

	if len(registry.IDs()) != 1 {
		t.Errorf("expected a single id after replacement, got %v", registry.IDs())
	}
}
