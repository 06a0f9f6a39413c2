package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// Provider names accepted by NewGenerator.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewGenerator builds the query generator for the configured provider.
func NewGenerator(provider string, cfg *Config, logger *zap.Logger) (QueryGenerator, error) {
	switch provider {
	case ProviderOpenAI, "":
		return NewOpenAIGenerator(cfg, logger)
	case ProviderAnthropic:
		return NewAnthropicGenerator(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown generator provider %q", provider)
	}
}
