package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config holds configuration for creating a generator client.
type Config struct {
	Endpoint string        // Base URL, e.g. "https://api.openai.com/v1"
	Model    string        // Model name, e.g. "gpt-4o"
	APIKey   string        // Optional for local endpoints
	Timeout  time.Duration // Per-call budget; zero means no extra deadline
}

// OpenAIGenerator calls an OpenAI-compatible chat completion endpoint.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAIGenerator creates a generator backed by an OpenAI-compatible endpoint.
func NewOpenAIGenerator(cfg *Config, logger *zap.Logger) (*OpenAIGenerator, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.Named("generator"),
	}, nil
}

// GenerateQuery requests one chat completion and returns the raw first choice.
// Temperature is pinned to zero: SQL generation wants the most deterministic
// candidate the model can produce.
func (g *OpenAIGenerator) GenerateQuery(ctx context.Context, system, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	g.logger.Debug("generator request",
		zap.String("model", g.model),
		zap.Int("prompt_len", len(prompt)))

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		g.logger.Error("generator request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", classifyError(fmt.Errorf("no choices in response"))
	}

	g.logger.Info("generator request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Choices[0].Message.Content, nil
}

// Model returns the configured model name.
func (g *OpenAIGenerator) Model() string {
	return g.model
}

var _ QueryGenerator = (*OpenAIGenerator)(nil)
