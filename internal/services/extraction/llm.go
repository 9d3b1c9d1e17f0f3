package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	domsvc "AstroPull/internal/domain/service"
	"AstroPull/pkg/config"
	xhttp "AstroPull/pkg/http"
)

// Completer sends one system+user exchange to a chat model and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// ChatClient talks to an OpenAI-compatible /chat/completions endpoint.
type ChatClient struct {
	apiKey      string
	model       string
	temperature float64
	client      *xhttp.Client
}

// NewChatClient builds the client from the llm config section.
func NewChatClient(cfg *config.Config) *ChatClient {
	timeout := cfg.LLM.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := strings.TrimRight(cfg.LLM.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &ChatClient{
		apiKey:      cfg.LLM.APIKey,
		model:       cfg.LLM.Model,
		temperature: cfg.LLM.Temperature,
		client: xhttp.NewClient(
			xhttp.WithTimeout(timeout),
			xhttp.WithBaseURL(baseURL),
			xhttp.WithBearer(cfg.LLM.APIKey),
		),
	}
}

func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: llm api key not configured", domsvc.ErrExtractorUnavailable)
	}
	var out chatResponse
	err := c.client.Post(ctx, "/chat/completions", chatRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}, &out)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w: %w", domsvc.ErrExtractorUnavailable, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat completion: %w: no choices", domsvc.ErrExtractorUnavailable)
	}
	return out.Choices[0].Message.Content, nil
}
