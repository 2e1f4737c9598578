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

// Ensure OpenAI implements ChatProvider
var _ driven.ChatProvider = (*OpenAI)(nil)

// OpenAI implements ChatProvider using the chat completions API.
// Any OpenAI-compatible endpoint works through BaseURL.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAI creates a new OpenAI chat provider.
// A missing API key fails with domain.ErrNotConfigured.
func NewOpenAI(settings domain.LLMSettings) (*OpenAI, error) {
	if settings.APIKey == "" {
		return nil, fmt.Errorf("%w: openai chat requires an API key", domain.ErrNotConfigured)
	}

	model := settings.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	baseURL := settings.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAI{
		apiKey:  settings.APIKey,
		model:   model,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// chatMessage is one message in the OpenAI envelope
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionRequest is the request body for the chat completions API
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatCompletionResponse is the response from the chat completions API
type chatCompletionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Chat sends the conversation and returns the generated answer
func (o *OpenAI) Chat(ctx context.Context, turns []domain.ConversationTurn) (domain.ChatResult, error) {
	messages := make([]chatMessage, 0, len(turns)+1)
	messages = append(messages, chatMessage{Role: "system", Content: systemPreamble})
	for _, turn := range turns {
		messages = append(messages, chatMessage{Role: string(turn.Role), Content: turn.Content})
	}

	reqBody := chatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return domain.ChatResult{}, fmt.Errorf("%w: openai status %d", domain.ErrProviderFailure, resp.StatusCode)
		}
		return domain.ChatResult{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	if resp.StatusCode != http.StatusOK {
		message := string(respBody)
		code := ""
		if chatResp.Error != nil {
			message = chatResp.Error.Message
			code = chatResp.Error.Code
		}
		if resp.StatusCode == http.StatusTooManyRequests || code == "insufficient_quota" {
			return domain.ChatResult{}, fmt.Errorf("%w: openai: %s", domain.ErrQuotaExceeded, message)
		}
		return domain.ChatResult{}, fmt.Errorf("%w: openai status %d: %s", domain.ErrProviderFailure, resp.StatusCode, message)
	}

	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return domain.ChatResult{}, fmt.Errorf("%w: openai response carries no choices", domain.ErrMalformedResponse)
	}

	return domain.ChatResult{
		Text: chatResp.Choices[0].Message.Content,
		Usage: domain.TokenUsage{
			Prompt:     chatResp.Usage.PromptTokens,
			Completion: chatResp.Usage.CompletionTokens,
			Total:      chatResp.Usage.TotalTokens,
		},
	}, nil
}

// ProviderID returns the vendor identifier
func (o *OpenAI) ProviderID() string {
	return string(domain.AIProviderOpenAI)
}

// HealthCheck verifies the API is reachable with the configured key
func (o *OpenAI) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", o.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: openai status %d", domain.ErrProviderFailure, resp.StatusCode)
	}
	return nil
}
