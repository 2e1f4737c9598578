package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven"
)

// anthropicVersion is the API version header Anthropic requires on every call
const anthropicVersion = "2023-06-01"

// Ensure Anthropic implements ChatProvider
var _ driven.ChatProvider = (*Anthropic)(nil)

// Anthropic implements ChatProvider using the messages API.
// Unlike OpenAI the system preamble travels as a top level field and
// the answer comes back as a list of content blocks.
type Anthropic struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewAnthropic creates a new Anthropic chat provider.
// A missing API key fails with domain.ErrNotConfigured.
func NewAnthropic(settings domain.LLMSettings) (*Anthropic, error) {
	if settings.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic chat requires an API key", domain.ErrNotConfigured)
	}

	model := settings.Model
	if model == "" {
		model = "claude-sonnet-4-5"
	}

	baseURL := settings.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	return &Anthropic{
		apiKey:  settings.APIKey,
		model:   model,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// anthropicMessage is one conversation message, user or assistant only
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicRequest is the request body for the messages API
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

// anthropicResponse is the response from the messages API
type anthropicResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat sends the conversation and returns the generated answer
func (a *Anthropic) Chat(ctx context.Context, turns []domain.ConversationTurn) (domain.ChatResult, error) {
	messages := make([]anthropicMessage, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, anthropicMessage{Role: string(turn.Role), Content: turn.Content})
	}

	reqBody := anthropicRequest{
		Model:     a.model,
		MaxTokens: defaultMaxTokens,
		System:    systemPreamble,
		Messages:  messages,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("failed to read response: %w", err)
	}

	var msgResp anthropicResponse
	if err := json.Unmarshal(respBody, &msgResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return domain.ChatResult{}, fmt.Errorf("%w: anthropic status %d", domain.ErrProviderFailure, resp.StatusCode)
		}
		return domain.ChatResult{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	if resp.StatusCode != http.StatusOK {
		message := string(respBody)
		errType := ""
		if msgResp.Error != nil {
			message = msgResp.Error.Message
			errType = msgResp.Error.Type
		}
		if resp.StatusCode == http.StatusTooManyRequests || errType == "rate_limit_error" {
			return domain.ChatResult{}, fmt.Errorf("%w: anthropic: %s", domain.ErrQuotaExceeded, message)
		}
		return domain.ChatResult{}, fmt.Errorf("%w: anthropic status %d: %s", domain.ErrProviderFailure, resp.StatusCode, message)
	}

	var text strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return domain.ChatResult{}, fmt.Errorf("%w: anthropic response carries no text content", domain.ErrMalformedResponse)
	}

	usage := domain.TokenUsage{
		Prompt:     msgResp.Usage.InputTokens,
		Completion: msgResp.Usage.OutputTokens,
		Total:      msgResp.Usage.InputTokens + msgResp.Usage.OutputTokens,
	}

	return domain.ChatResult{Text: text.String(), Usage: usage}, nil
}

// ProviderID returns the vendor identifier
func (a *Anthropic) ProviderID() string {
	return string(domain.AIProviderAnthropic)
}

// HealthCheck verifies the API is reachable with the configured key.
// Anthropic has no free probe endpoint so this sends a minimal message.
func (a *Anthropic) HealthCheck(ctx context.Context) error {
	reqBody := anthropicRequest{
		Model:     a.model,
		MaxTokens: 1,
		Messages:  []anthropicMessage{{Role: "user", Content: "ping"}},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: anthropic status %d", domain.ErrProviderFailure, resp.StatusCode)
	}
	return nil
}
