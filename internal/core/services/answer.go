package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driving"
	"github.com/leohan123123/blueprint-core/internal/runtime"
)

// Ensure answerService implements AnswerService
var _ driving.AnswerService = (*answerService)(nil)

// maxExcerptLength bounds the cited excerpt in a source reference
const maxExcerptLength = 300

// answerService implements the retrieval-augmented question flow:
// embed → query → relevance filter → grounded context or ungrounded
// fallback → generate. Retrieval trouble degrades to the fallback
// path; generation trouble is surfaced to the caller.
type answerService struct {
	services     *runtime.Services
	historyTurns int
	logger       *slog.Logger
}

// AnswerConfig holds dependencies for the answer service.
type AnswerConfig struct {
	Services     *runtime.Services
	HistoryTurns int // <= 0 falls back to domain.DefaultHistoryTurns
	Logger       *slog.Logger
}

// NewAnswerService creates a new AnswerService.
// Embedding, index and chat backends are resolved per call via
// runtime.Services, so settings changes apply to the next question.
func NewAnswerService(cfg AnswerConfig) driving.AnswerService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	historyTurns := cfg.HistoryTurns
	if historyTurns <= 0 {
		historyTurns = domain.DefaultHistoryTurns
	}

	return &answerService{
		services:     cfg.Services,
		historyTurns: historyTurns,
		logger:       logger.With("component", "answer"),
	}
}

// Ask answers a question, grounded in retrieved chunks when any score
// above the relevance threshold
func (s *answerService) Ask(ctx context.Context, req driving.AskRequest) (*domain.RAGAnswer, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	provider, err := s.resolveProvider(req.ProviderID)
	if err != nil {
		return nil, err
	}

	topK := req.TopK
	if topK <= 0 {
		topK = driving.DefaultTopK
	}
	minRelevance := float32(driving.DefaultMinRelevance)
	if req.MinRelevance != nil {
		minRelevance = *req.MinRelevance
	}

	matches := s.retrieve(ctx, req.Question, topK, minRelevance, req.Filter)
	history := domain.TailTurns(req.History, s.historyTurns)

	var turns []domain.ConversationTurn
	turns = append(turns, history...)
	if len(matches) == 0 {
		turns = append(turns, domain.ConversationTurn{Role: domain.RoleUser, Content: req.Question})
	} else {
		turns = append(turns, domain.ConversationTurn{Role: domain.RoleUser, Content: buildGroundedPrompt(req.Question, matches)})
	}

	result, err := provider.Chat(ctx, turns)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	answer := &domain.RAGAnswer{
		Answer:     result.Text,
		Sources:    buildSources(matches),
		ProviderID: provider.ProviderID(),
		Grounded:   len(matches) > 0,
		Usage:      result.Usage,
	}

	s.logger.Info("question answered",
		"provider", answer.ProviderID,
		"grounded", answer.Grounded,
		"sources", len(answer.Sources),
		"total_tokens", answer.Usage.Total)

	return answer, nil
}

// resolveProvider returns the requested chat provider, or the default
// when the request names none
func (s *answerService) resolveProvider(providerID string) (driven.ChatProvider, error) {
	registry := s.services.Chat()
	if registry == nil {
		return nil, fmt.Errorf("%w: no chat providers configured", domain.ErrNotConfigured)
	}
	if providerID != "" {
		return registry.Get(providerID)
	}
	return registry.Default()
}

// retrieve embeds the question and queries the index, keeping only
// matches at or above minRelevance. Any retrieval failure returns an
// empty set: the ungrounded fallback is the designed recovery for
// both "nothing relevant" and a retrieval-layer outage.
func (s *answerService) retrieve(ctx context.Context, question string, topK int, minRelevance float32, filter domain.Filter) []domain.QueryMatch {
	embedder := s.services.Embedder()
	index := s.services.Index()
	if embedder == nil || index == nil {
		s.logger.Warn("retrieval unavailable, answering without context")
		return nil
	}

	vector, err := embedder.Embed(ctx, question)
	if err != nil {
		s.logger.Warn("query embedding failed, answering without context", "error", err)
		return nil
	}

	matches, err := index.Query(ctx, vector, topK, filter)
	if err != nil {
		s.logger.Warn("index query failed, answering without context", "error", err)
		return nil
	}

	relevant := make([]domain.QueryMatch, 0, len(matches))
	for _, match := range matches {
		if match.Score >= minRelevance {
			relevant = append(relevant, match)
		}
	}

	s.logger.Debug("chunks retrieved",
		"candidates", len(matches),
		"relevant", len(relevant),
		"min_relevance", minRelevance)

	return relevant
}

// buildGroundedPrompt assembles the context-augmented question: every
// retrieved chunk with its source file and relevance, then grounding
// instructions, then the question itself.
func buildGroundedPrompt(question string, matches []domain.QueryMatch) string {
	var b strings.Builder

	b.WriteString("Excerpts from the project documents:\n\n")
	for i, match := range matches {
		fmt.Fprintf(&b, "[%d] %s (relevance %.0f%%)\n%s\n\n", i+1, match.Chunk.FileName, match.Score*100, match.Chunk.Text)
	}
	b.WriteString("Answer the question using the excerpts above. Cite the source files you used by name. If the excerpts do not contain the answer, say so.\n\n")
	b.WriteString("Question: ")
	b.WriteString(question)

	return b.String()
}

// buildSources turns matches into citations with bounded excerpts and
// scores rounded to two decimals. Never nil, so a degraded answer
// serializes sources as [] rather than null.
func buildSources(matches []domain.QueryMatch) []domain.Source {
	sources := make([]domain.Source, 0, len(matches))
	for _, match := range matches {
		excerpt := truncateExcerpt(match.Chunk.Text)
		sources = append(sources, domain.Source{
			Excerpt:        excerpt,
			FileName:       match.Chunk.FileName,
			FileType:       match.Chunk.FileType,
			RelevanceScore: float32(math.Round(float64(match.Score)*100) / 100),
		})
	}
	return sources
}

// truncateExcerpt bounds text to maxExcerptLength bytes, backing the
// cut up to a rune boundary so a multi-byte character is never split
func truncateExcerpt(text string) string {
	if len(text) <= maxExcerptLength {
		return text
	}
	cut := maxExcerptLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
