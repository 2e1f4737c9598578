package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven/mocks"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driving"
)

// Mock services for testing

type mockIngestService struct {
	ingestFn func(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error)
}

func (m *mockIngestService) Ingest(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	if m.ingestFn != nil {
		return m.ingestFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

type mockAnswerService struct {
	askFn    func(ctx context.Context, req driving.AskRequest) (*domain.RAGAnswer, error)
	lastAsk  driving.AskRequest
	askCalls int
}

func (m *mockAnswerService) Ask(ctx context.Context, req driving.AskRequest) (*domain.RAGAnswer, error) {
	m.lastAsk = req
	m.askCalls++
	if m.askFn != nil {
		return m.askFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

type mockKnowledgeService struct {
	removeFn func(ctx context.Context, sourceDocID string) (*domain.DeleteResult, error)
	statusFn func(ctx context.Context) (*driving.StatusReport, error)
}

func (m *mockKnowledgeService) Remove(ctx context.Context, sourceDocID string) (*domain.DeleteResult, error) {
	if m.removeFn != nil {
		return m.removeFn(ctx, sourceDocID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockKnowledgeService) Status(ctx context.Context) (*driving.StatusReport, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx)
	}
	return nil, errors.New("not implemented")
}

type mockSettingsService struct {
	getFn    func(ctx context.Context) (*domain.AISettings, error)
	updateFn func(ctx context.Context, req driving.UpdateAISettingsRequest) (*driving.AISettingsStatus, error)
	statusFn func(ctx context.Context) (*driving.AISettingsStatus, error)
}

func (m *mockSettingsService) GetAISettings(ctx context.Context) (*domain.AISettings, error) {
	if m.getFn != nil {
		return m.getFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSettingsService) UpdateAISettings(ctx context.Context, req driving.UpdateAISettingsRequest) (*driving.AISettingsStatus, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSettingsService) GetAIStatus(ctx context.Context) (*driving.AISettingsStatus, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx)
	}
	return nil, errors.New("not implemented")
}

// Test fixture

type serverFixture struct {
	server    *Server
	ingest    *mockIngestService
	answer    *mockAnswerService
	knowledge *mockKnowledgeService
	settings  *mockSettingsService
	sessions  *mocks.MockConversationStore
}

func newServerFixture() *serverFixture {
	f := &serverFixture{
		ingest:    &mockIngestService{},
		answer:    &mockAnswerService{},
		knowledge: &mockKnowledgeService{},
		settings:  &mockSettingsService{},
		sessions:  mocks.NewMockConversationStore(),
	}

	cfg := DefaultConfig()
	f.server = NewServer(cfg, f.ingest, f.answer, f.knowledge, f.settings,
		f.sessions, domain.NewRuntimeConfig("memory", "memory"))
	return f
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHandleHealth(t *testing.T) {
	f := newServerFixture()
	rec := f.do(t, http.MethodGet, "/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[HealthResponse](t, rec)
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %s", resp.Status)
	}
	if resp.VectorBackend != "memory" {
		t.Errorf("expected memory backend, got %s", resp.VectorBackend)
	}
}

func TestHandleStatus(t *testing.T) {
	f := newServerFixture()
	f.knowledge.statusFn = func(ctx context.Context) (*driving.StatusReport, error) {
		return &driving.StatusReport{
			Stats:   domain.KnowledgeBaseStats{VectorCount: 42, DocumentCount: 3},
			Summary: "42 chunks from 3 documents",
		}, nil
	}

	rec := f.do(t, http.MethodGet, "/api/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[driving.StatusReport](t, rec)
	if resp.Stats.VectorCount != 42 {
		t.Errorf("expected 42 vectors, got %d", resp.Stats.VectorCount)
	}
}

func TestHandleIngestDocument(t *testing.T) {
	f := newServerFixture()
	f.ingest.ingestFn = func(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
		if req.SourceDocID != "doc-1" {
			t.Errorf("unexpected doc id: %s", req.SourceDocID)
		}
		return &driving.IngestResult{SourceDocID: req.SourceDocID, ChunksStored: 4, ChunksFailed: 1}, nil
	}

	rec := f.do(t, http.MethodPost, "/api/v1/documents", driving.IngestRequest{
		SourceDocID: "doc-1",
		FileName:    "report.pdf",
		FileType:    domain.FileTypeDocument,
		Text:        "Beam load data.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[driving.IngestResult](t, rec)
	if resp.ChunksStored != 4 || resp.ChunksFailed != 1 {
		t.Errorf("unexpected result: %+v", resp)
	}
}

func TestHandleIngestDocument_Errors(t *testing.T) {
	f := newServerFixture()

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("validation error", func(t *testing.T) {
		f.ingest.ingestFn = func(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
			return nil, fmt.Errorf("%w: document text is empty", domain.ErrInvalidInput)
		}
		rec := f.do(t, http.MethodPost, "/api/v1/documents", driving.IngestRequest{SourceDocID: "doc-1"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("not configured", func(t *testing.T) {
		f.ingest.ingestFn = func(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
			return nil, domain.ErrNotConfigured
		}
		rec := f.do(t, http.MethodPost, "/api/v1/documents", driving.IngestRequest{SourceDocID: "doc-1", Text: "x"})
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
	})
}

func TestHandleRemoveDocument(t *testing.T) {
	f := newServerFixture()
	f.knowledge.removeFn = func(ctx context.Context, sourceDocID string) (*domain.DeleteResult, error) {
		if sourceDocID != "doc-1" {
			t.Errorf("unexpected doc id: %s", sourceDocID)
		}
		return &domain.DeleteResult{DeletedCount: 7}, nil
	}

	rec := f.do(t, http.MethodDelete, "/api/v1/documents/doc-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[domain.DeleteResult](t, rec)
	if resp.DeletedCount != 7 {
		t.Errorf("expected 7 deletions, got %d", resp.DeletedCount)
	}
}

func TestHandleAsk(t *testing.T) {
	f := newServerFixture()
	f.answer.askFn = func(ctx context.Context, req driving.AskRequest) (*domain.RAGAnswer, error) {
		return &domain.RAGAnswer{
			Answer:     "The main beam carries 500kN.",
			Sources:    []domain.Source{{FileName: "report.pdf", FileType: domain.FileTypeDocument, RelevanceScore: 0.91}},
			ProviderID: "openai",
			Grounded:   true,
		}, nil
	}

	rec := f.do(t, http.MethodPost, "/api/v1/ask", AskHTTPRequest{Question: "What load does the main beam carry?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[AskHTTPResponse](t, rec)
	if !resp.Grounded || len(resp.Sources) != 1 {
		t.Errorf("unexpected answer: %+v", resp)
	}
}

func TestHandleAsk_FilterMapping(t *testing.T) {
	f := newServerFixture()
	f.answer.askFn = func(ctx context.Context, req driving.AskRequest) (*domain.RAGAnswer, error) {
		return &domain.RAGAnswer{Answer: "ok", Sources: []domain.Source{}}, nil
	}

	rec := f.do(t, http.MethodPost, "/api/v1/ask", AskHTTPRequest{
		Question: "question",
		Filter:   map[string]any{"file_type": "document"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	filter := f.answer.lastAsk.Filter
	if filter == nil {
		t.Fatal("expected a filter to be passed through")
	}
	if !filter.Matches(map[string]any{"file_type": "document"}) {
		t.Error("filter should match file_type=document")
	}
	if filter.Matches(map[string]any{"file_type": "model"}) {
		t.Error("filter should not match file_type=model")
	}
}

func TestHandleAsk_SessionHistory(t *testing.T) {
	f := newServerFixture()
	_ = f.sessions.Append(context.Background(), "session-1",
		domain.ConversationTurn{Role: domain.RoleUser, Content: "earlier question"},
		domain.ConversationTurn{Role: domain.RoleAssistant, Content: "earlier answer"},
	)
	f.answer.askFn = func(ctx context.Context, req driving.AskRequest) (*domain.RAGAnswer, error) {
		return &domain.RAGAnswer{Answer: "fresh answer", Sources: []domain.Source{}}, nil
	}

	rec := f.do(t, http.MethodPost, "/api/v1/ask", AskHTTPRequest{
		Question:  "follow-up question",
		SessionID: "session-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if len(f.answer.lastAsk.History) != 2 {
		t.Errorf("expected 2 history turns passed to the service, got %d", len(f.answer.lastAsk.History))
	}

	// The new exchange must be appended after answering
	session, err := f.sessions.History(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(session.Turns) != 4 {
		t.Fatalf("expected 4 stored turns, got %d", len(session.Turns))
	}
	if session.Turns[3].Role != domain.RoleAssistant || session.Turns[3].Content != "fresh answer" {
		t.Errorf("unexpected final turn: %+v", session.Turns[3])
	}
}

func TestHandleAsk_GenerationFailure(t *testing.T) {
	f := newServerFixture()
	f.answer.askFn = func(ctx context.Context, req driving.AskRequest) (*domain.RAGAnswer, error) {
		return nil, fmt.Errorf("%w: model overloaded", domain.ErrProviderFailure)
	}

	rec := f.do(t, http.MethodPost, "/api/v1/ask", AskHTTPRequest{Question: "question"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}

func TestHandleSessions(t *testing.T) {
	f := newServerFixture()
	_ = f.sessions.Append(context.Background(), "session-1",
		domain.ConversationTurn{Role: domain.RoleUser, Content: "hello"})

	t.Run("get", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/sessions/session-1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		session := decode[domain.ConversationSession](t, rec)
		if len(session.Turns) != 1 {
			t.Errorf("expected 1 turn, got %d", len(session.Turns))
		}
	})

	t.Run("get unknown", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/sessions/nope", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, "/api/v1/sessions/session-1", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if _, err := f.sessions.History(context.Background(), "session-1"); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Error("expected the session to be gone")
		}
	})
}

func TestHandleAISettings(t *testing.T) {
	f := newServerFixture()

	t.Run("get", func(t *testing.T) {
		f.settings.getFn = func(ctx context.Context) (*domain.AISettings, error) {
			return &domain.AISettings{
				Embedding: domain.EmbeddingSettings{Provider: domain.AIProviderLocal, APIKey: "secret", Dimensions: 384},
			}, nil
		}
		rec := f.do(t, http.MethodGet, "/api/v1/settings/ai", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if bytes.Contains(rec.Body.Bytes(), []byte("secret")) {
			t.Error("API key must never be serialized")
		}
	})

	t.Run("update", func(t *testing.T) {
		f.settings.updateFn = func(ctx context.Context, req driving.UpdateAISettingsRequest) (*driving.AISettingsStatus, error) {
			return &driving.AISettingsStatus{VectorsDropped: 12}, nil
		}
		rec := f.do(t, http.MethodPut, "/api/v1/settings/ai", driving.UpdateAISettingsRequest{
			Embedding: &driving.EmbeddingSettingsInput{Provider: domain.AIProviderLocal},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decode[driving.AISettingsStatus](t, rec)
		if resp.VectorsDropped != 12 {
			t.Errorf("expected 12 vectors dropped, got %d", resp.VectorsDropped)
		}
	})

	t.Run("update invalid provider", func(t *testing.T) {
		f.settings.updateFn = func(ctx context.Context, req driving.UpdateAISettingsRequest) (*driving.AISettingsStatus, error) {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidProvider, "mistral")
		}
		rec := f.do(t, http.MethodPut, "/api/v1/settings/ai", driving.UpdateAISettingsRequest{})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandleListProviders(t *testing.T) {
	f := newServerFixture()
	f.settings.statusFn = func(ctx context.Context) (*driving.AISettingsStatus, error) {
		return &driving.AISettingsStatus{
			Chat: driving.ChatStatus{Providers: []string{"anthropic", "openai"}, Default: "openai"},
		}, nil
	}

	rec := f.do(t, http.MethodGet, "/api/v1/providers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[driving.ChatStatus](t, rec)
	if len(resp.Providers) != 2 || resp.Default != "openai" {
		t.Errorf("unexpected providers: %+v", resp)
	}
}
