package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// HealthResponse reports process health and the active AI capabilities
// @Description Health status with active backend and strategy information
type HealthResponse struct {
	Status            string   `json:"status" example:"ok"`
	VectorBackend     string   `json:"vector_backend" example:"memory"`
	SessionBackend    string   `json:"session_backend" example:"redis"`
	EmbeddingStrategy string   `json:"embedding_strategy" example:"local"`
	ChatProviders     []string `json:"chat_providers"`
}

// AskHTTPRequest is the ask endpoint's JSON body.
// SessionID is optional; when set, stored history is prepended and the
// new turns are appended after answering. Filter holds metadata
// field/value equality pairs.
type AskHTTPRequest struct {
	Question     string         `json:"question"`
	ProviderID   string         `json:"provider_id,omitempty"`
	SessionID    string         `json:"session_id,omitempty"`
	TopK         int            `json:"top_k,omitempty"`
	MinRelevance *float32       `json:"min_relevance,omitempty"`
	Filter       map[string]any `json:"filter,omitempty"`
}

// AskHTTPResponse wraps the answer with its session id
type AskHTTPResponse struct {
	domain.RAGAnswer
	SessionID string `json:"session_id,omitempty"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns process health, the active vector backend and the active embedding strategy
// @Tags         Health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:            "ok",
		VectorBackend:     s.runtimeConfig.VectorBackend,
		SessionBackend:    s.runtimeConfig.SessionBackend,
		EmbeddingStrategy: s.runtimeConfig.EmbeddingStrategy(),
		ChatProviders:     s.runtimeConfig.ChatProviders(),
	})
}

// handleVersion godoc
// @Summary      Get API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Knowledge base endpoints

// handleStatus godoc
// @Summary      Knowledge-base status
// @Description  Returns aggregate index stats and a human-readable summary
// @Tags         Knowledge
// @Produce      json
// @Success      200  {object}  driving.StatusReport
// @Failure      503  {object}  ErrorResponse  "Index not initialised"
// @Router       /api/v1/status [get]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.knowledgeService.Status(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleIngestDocument godoc
// @Summary      Ingest a document
// @Description  Chunks, embeds and indexes extracted document text. ChunksFailed > 0 reports partial ingestion, not failure.
// @Tags         Knowledge
// @Accept       json
// @Produce      json
// @Param        request  body      driving.IngestRequest  true  "Extracted document text"
// @Success      201      {object}  driving.IngestResult
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      503      {object}  ErrorResponse  "Engine not initialised"
// @Router       /api/v1/documents [post]
func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var req driving.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.ingestService.Ingest(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// handleRemoveDocument godoc
// @Summary      Remove a document
// @Description  Deletes every indexed chunk of a source document. Removing an unknown document reports zero deletions.
// @Tags         Knowledge
// @Produce      json
// @Param        id   path      string  true  "Source document id"
// @Success      200  {object}  domain.DeleteResult
// @Failure      400  {object}  ErrorResponse  "Invalid id"
// @Router       /api/v1/documents/{id} [delete]
func (s *Server) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	result, err := s.knowledgeService.Remove(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Question answering

// handleAsk godoc
// @Summary      Ask a question
// @Description  Answers a question grounded in retrieved document chunks. An empty sources list signals the answer was produced without grounding.
// @Tags         Ask
// @Accept       json
// @Produce      json
// @Param        request  body      AskHTTPRequest  true  "Question"
// @Success      200      {object}  AskHTTPResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      502      {object}  ErrorResponse  "Generation failed"
// @Failure      503      {object}  ErrorResponse  "No chat provider configured"
// @Router       /api/v1/ask [post]
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	askReq := driving.AskRequest{
		Question:     req.Question,
		ProviderID:   req.ProviderID,
		TopK:         req.TopK,
		MinRelevance: req.MinRelevance,
		Filter:       filterFromMap(req.Filter),
	}

	if req.SessionID != "" {
		if session, err := s.conversations.History(r.Context(), req.SessionID); err == nil {
			askReq.History = session.Turns
		} else if !errors.Is(err, domain.ErrSessionNotFound) {
			s.logger.Warn("failed to load session history", "session_id", req.SessionID, "error", err)
		}
	}

	answer, err := s.answerService.Ask(r.Context(), askReq)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if req.SessionID != "" {
		err := s.conversations.Append(r.Context(), req.SessionID,
			domain.ConversationTurn{Role: domain.RoleUser, Content: req.Question},
			domain.ConversationTurn{Role: domain.RoleAssistant, Content: answer.Answer},
		)
		if err != nil {
			s.logger.Warn("failed to append session history", "session_id", req.SessionID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, AskHTTPResponse{RAGAnswer: *answer, SessionID: req.SessionID})
}

// Conversation sessions

// handleGetSession godoc
// @Summary      Get session history
// @Tags         Sessions
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  domain.ConversationSession
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Router       /api/v1/sessions/{id} [get]
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.conversations.History(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleDeleteSession godoc
// @Summary      Delete a session
// @Tags         Sessions
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  StatusResponse
// @Router       /api/v1/sessions/{id} [delete]
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.conversations.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AI settings endpoints

// handleGetAISettings godoc
// @Summary      Get AI settings
// @Description  Returns the active AI configuration; API keys are never serialized
// @Tags         Settings
// @Produce      json
// @Success      200  {object}  domain.AISettings
// @Router       /api/v1/settings/ai [get]
func (s *Server) handleGetAISettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settingsService.GetAISettings(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleUpdateAISettings godoc
// @Summary      Update AI settings
// @Description  Hot-swaps AI providers. Changing the embedding settings resets the vector index; the response reports how many vectors were dropped.
// @Tags         Settings
// @Accept       json
// @Produce      json
// @Param        request  body      driving.UpdateAISettingsRequest  true  "Settings update"
// @Success      200      {object}  driving.AISettingsStatus
// @Failure      400      {object}  ErrorResponse  "Invalid settings"
// @Failure      503      {object}  ErrorResponse  "Missing credential"
// @Router       /api/v1/settings/ai [put]
func (s *Server) handleUpdateAISettings(w http.ResponseWriter, r *http.Request) {
	var req driving.UpdateAISettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := s.settingsService.UpdateAISettings(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleGetAIStatus godoc
// @Summary      Get AI service status
// @Tags         Settings
// @Produce      json
// @Success      200  {object}  driving.AISettingsStatus
// @Router       /api/v1/settings/ai/status [get]
func (s *Server) handleGetAIStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.settingsService.GetAIStatus(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleListProviders godoc
// @Summary      List chat providers
// @Tags         Settings
// @Produce      json
// @Success      200  {object}  driving.ChatStatus
// @Router       /api/v1/providers [get]
func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	status, err := s.settingsService.GetAIStatus(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status.Chat)
}

// Helper functions

// filterFromMap turns the wire filter (field → value or value list)
// into the domain predicate
func filterFromMap(raw map[string]any) domain.Filter {
	if len(raw) == 0 {
		return nil
	}

	filters := make([]domain.Filter, 0, len(raw))
	for field, value := range raw {
		if values, ok := value.([]any); ok {
			filters = append(filters, domain.OneOf(field, values...))
			continue
		}
		filters = append(filters, domain.Equals(field, value))
	}
	if len(filters) == 1 {
		return filters[0]
	}
	return domain.And(filters...)
}

// writeDomainError maps domain sentinels to HTTP status codes
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidProvider):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotConfigured), errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrProviderFailure), errors.Is(err, domain.ErrQuotaExceeded),
		errors.Is(err, domain.ErrMalformedResponse):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
