package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven"
)

// Ensure Ollama implements ChatProvider
var _ driven.ChatProvider = (*Ollama)(nil)

// Ollama implements ChatProvider against a local Ollama daemon.
// No credentials are involved, only a reachable base URL.
type Ollama struct {
	model   string
	baseURL string
	client  *http.Client
}

// NewOllama creates a new Ollama chat provider
func NewOllama(settings domain.LLMSettings) (*Ollama, error) {
	model := settings.Model
	if model == "" {
		model = "llama3.1"
	}

	baseURL := settings.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &Ollama{
		model:   model,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 300 * time.Second,
		},
	}, nil
}

// ollamaMessage is one message in the Ollama envelope
type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaOptions carries sampling parameters
type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
}

// ollamaChatRequest is the request body for /api/chat
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

// ollamaChatResponse is the non streaming response from /api/chat
type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	Error           string        `json:"error,omitempty"`
}

// Chat sends the conversation and returns the generated answer
func (o *Ollama) Chat(ctx context.Context, turns []domain.ConversationTurn) (domain.ChatResult, error) {
	messages := make([]ollamaMessage, 0, len(turns)+1)
	messages = append(messages, ollamaMessage{Role: "system", Content: systemPreamble})
	for _, turn := range turns {
		messages = append(messages, ollamaMessage{Role: string(turn.Role), Content: turn.Content})
	}

	reqBody := ollamaChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   false,
		Options:  ollamaOptions{Temperature: defaultTemperature},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return domain.ChatResult{}, fmt.Errorf("%w: ollama status %d", domain.ErrProviderFailure, resp.StatusCode)
		}
		return domain.ChatResult{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	if resp.StatusCode != http.StatusOK {
		message := string(respBody)
		if chatResp.Error != "" {
			message = chatResp.Error
		}
		return domain.ChatResult{}, fmt.Errorf("%w: ollama status %d: %s", domain.ErrProviderFailure, resp.StatusCode, message)
	}

	if chatResp.Message.Content == "" {
		return domain.ChatResult{}, fmt.Errorf("%w: ollama response carries no message content", domain.ErrMalformedResponse)
	}

	usage := domain.TokenUsage{
		Prompt:     chatResp.PromptEvalCount,
		Completion: chatResp.EvalCount,
		Total:      chatResp.PromptEvalCount + chatResp.EvalCount,
	}

	return domain.ChatResult{Text: chatResp.Message.Content, Usage: usage}, nil
}

// ProviderID returns the vendor identifier
func (o *Ollama) ProviderID() string {
	return string(domain.AIProviderOllama)
}

// HealthCheck verifies the daemon is reachable
func (o *Ollama) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", o.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama status %d", domain.ErrProviderFailure, resp.StatusCode)
	}
	return nil
}
