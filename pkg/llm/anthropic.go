package llm

import (
	"context"
	"fmt"
	"time"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// generatedQueryMaxTokens bounds the completion. A single SQL statement fits
// comfortably; anything longer is noise the sanitizer would reject anyway.
const generatedQueryMaxTokens = 1024

// AnthropicGenerator calls the Anthropic Messages API.
type AnthropicGenerator struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewAnthropicGenerator creates a generator backed by the Anthropic API.
func NewAnthropicGenerator(cfg *Config, logger *zap.Logger) (*AnthropicGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	return &AnthropicGenerator{
		client:  anthropic.NewClient(cfg.APIKey),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.Named("generator"),
	}, nil
}

// GenerateQuery requests one message completion and returns the first text block.
func (g *AnthropicGenerator) GenerateQuery(ctx context.Context, system, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()

	resp, err := g.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(g.model),
		System:    system,
		MaxTokens: generatedQueryMaxTokens,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
	})
	if err != nil {
		g.logger.Error("generator request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", classifyError(err)
	}

	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			g.logger.Info("generator request completed",
				zap.Int("input_tokens", resp.Usage.InputTokens),
				zap.Int("output_tokens", resp.Usage.OutputTokens),
				zap.Duration("elapsed", time.Since(start)))
			return *block.Text, nil
		}
	}

	return "", classifyError(fmt.Errorf("no text content in response"))
}

// Model returns the configured model name.
func (g *AnthropicGenerator) Model() string {
	return g.model
}

var _ QueryGenerator = (*AnthropicGenerator)(nil)
