package llm

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// CompletionRequest carries the prompt and sampling parameters for one
// generation call.
type CompletionRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float32
	TopP        float32
	Stop        []string
}

// Service is the text generation service interface.
type Service interface {
	// Complete generates a single completion for the request prompt.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Config represents LLM service configuration.
type Config struct {
	Provider string // openai, deepseek, siliconflow, openrouter, ollama
	Model    string // gpt-4o, deepseek-chat, etc.
	APIKey   string
	BaseURL  string
	Timeout  int // Request timeout in seconds (default: 120)
}

type service struct {
	client  *openai.Client
	model   string
	timeout int
}

// NewService creates a new LLM Service.
func NewService(cfg *Config) (Service, error) {
	httpClient := newHTTPClient()

	var baseURL string
	switch cfg.Provider {
	case "deepseek":
		baseURL = "https://api.deepseek.com"
	case "siliconflow":
		baseURL = "https://api.siliconflow.cn/v1"
	case "openrouter":
		baseURL = "https://openrouter.ai/api/v1"
	case "ollama":
		baseURL = "http://localhost:11434/v1"
	case "openai":
		// openai.DefaultConfig already points at the OpenAI endpoint.
	default:
		// Generic fallback for any other OpenAI-compatible provider
		slog.Info("Using generic OpenAI-compatible provider", "provider", cfg.Provider)
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	clientConfig.HTTPClient = httpClient

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120
	}

	return &service{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: timeout,
	}, nil
}

func (s *service) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
	defer cancel()

	slog.Debug("LLM: completion request",
		"model", s.model,
		"prompt_length", len(req.Prompt),
		"max_tokens", req.MaxTokens,
	)

	startTime := time.Now()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		slog.Error("LLM: completion request failed", "error", err)
		return "", errors.Wrap(err, "llm completion failed")
	}
	if len(resp.Choices) == 0 {
		slog.Warn("LLM: empty response")
		return "", errors.New("empty response from llm")
	}

	slog.Debug("LLM: completion response received",
		"content_length", len(resp.Choices[0].Message.Content),
		"total_tokens", resp.Usage.TotalTokens,
		"duration_ms", time.Since(startTime).Milliseconds(),
	)

	return resp.Choices[0].Message.Content, nil
}

// newHTTPClient creates an HTTP client with connection-level timeouts. The
// overall request deadline comes from the per-call context.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 60 * time.Second,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}
