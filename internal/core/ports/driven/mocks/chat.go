package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven"
)

// MockChatProvider is a scriptable ChatProvider for testing.
// It records every conversation it receives so tests can assert
// whether the prompt carried retrieved context or the raw question.
type MockChatProvider struct {
	mu         sync.Mutex
	providerID string
	response   string
	usage      domain.TokenUsage
	err        error

	// Calls holds the turns of each Chat invocation, in order
	Calls [][]domain.ConversationTurn
}

// NewMockChatProvider creates a new MockChatProvider answering with text
func NewMockChatProvider(providerID, text string) *MockChatProvider {
	return &MockChatProvider{
		providerID: providerID,
		response:   text,
		usage:      domain.TokenUsage{Prompt: 10, Completion: 5, Total: 15},
	}
}

func (m *MockChatProvider) Chat(ctx context.Context, turns []domain.ConversationTurn) (domain.ChatResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]domain.ConversationTurn, len(turns))
	copy(copied, turns)
	m.Calls = append(m.Calls, copied)

	if m.err != nil {
		return domain.ChatResult{}, m.err
	}
	return domain.ChatResult{Text: m.response, Usage: m.usage}, nil
}

func (m *MockChatProvider) ProviderID() string {
	return m.providerID
}

func (m *MockChatProvider) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Helper methods for testing

func (m *MockChatProvider) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockChatProvider) SetUsage(usage domain.TokenUsage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = usage
}

// LastCall returns the turns of the most recent Chat invocation
func (m *MockChatProvider) LastCall() []domain.ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	return m.Calls[len(m.Calls)-1]
}

// MockChatRegistry is an in-memory ChatRegistry for testing
type MockChatRegistry struct {
	mu        sync.Mutex
	providers map[string]driven.ChatProvider
	defaultID string
}

// NewMockChatRegistry creates a registry holding the given providers.
// The first provider becomes the default.
func NewMockChatRegistry(providers ...driven.ChatProvider) *MockChatRegistry {
	m := &MockChatRegistry{providers: make(map[string]driven.ChatProvider)}
	for _, provider := range providers {
		m.Register(provider)
	}
	return m
}

// Register adds a provider; the first registered becomes the default
func (m *MockChatRegistry) Register(provider driven.ChatProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.providers) == 0 {
		m.defaultID = provider.ProviderID()
	}
	m.providers[provider.ProviderID()] = provider
}

func (m *MockChatRegistry) Get(id string) (driven.ChatProvider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	provider, ok := m.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidProvider, id)
	}
	return provider, nil
}

func (m *MockChatRegistry) Default() (driven.ChatProvider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.defaultID == "" {
		return nil, fmt.Errorf("%w: no chat provider registered", domain.ErrNotConfigured)
	}
	return m.providers[m.defaultID], nil
}

func (m *MockChatRegistry) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.providers))
	for id := range m.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
