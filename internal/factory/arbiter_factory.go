package factory

import (
	"fmt"

	"github.com/mikey/mail-gatekeeper/internal/adapters/bedrock"
	"github.com/mikey/mail-gatekeeper/internal/adapters/gemini"
	"github.com/mikey/mail-gatekeeper/internal/adapters/openai"
	"github.com/mikey/mail-gatekeeper/internal/arbiter"
	"github.com/mikey/mail-gatekeeper/internal/config"
	"github.com/mikey/mail-gatekeeper/internal/core"
	"github.com/mikey/mail-gatekeeper/internal/heuristics"
	"github.com/mikey/mail-gatekeeper/internal/utils"
	"go.uber.org/zap"
)

// ArbiterFactory creates LLM arbiters
type ArbiterFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewArbiterFactory creates a new arbiter factory
func NewArbiterFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ArbiterFactory {
	return &ArbiterFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateArbiter creates the configured provider's arbiter, wrapped with the
// per-call timeout and bounded retry
func (f *ArbiterFactory) CreateArbiter(profile heuristics.Profile) (core.Arbiter, error) {
	llmCfg, err := f.cfg.GetLLM()
	if err != nil {
		return nil, fmt.Errorf("invalid llm configuration: %w", err)
	}

	maxBodySize := llmCfg.MaxBodySize
	if profile.MaxBodySize > 0 {
		maxBodySize = profile.MaxBodySize
	}

	var inner core.Arbiter
	switch llmCfg.Provider {
	case "openai":
		openaiCfg := f.cfg.GetOpenAI()
		if openaiCfg.APIKey == "" {
			return nil, fmt.Errorf("openai API key is required")
		}
		inner = openai.NewArbiter(openaiCfg, maxBodySize, profile.PromptStyle, f.textProcessor, f.logger)
	case "gemini":
		geminiCfg := f.cfg.GetGemini()
		if geminiCfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required")
		}
		inner, err = gemini.NewArbiter(geminiCfg, maxBodySize, profile.PromptStyle, f.textProcessor, f.logger)
		if err != nil {
			return nil, err
		}
	case "bedrock":
		inner, err = bedrock.NewArbiter(f.cfg.GetBedrock(), maxBodySize, profile.PromptStyle, f.textProcessor, f.logger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmCfg.Provider)
	}

	return arbiter.WithRetry(inner, llmCfg.Timeout, llmCfg.MaxRetries, llmCfg.RetryBackoff, f.logger), nil
}
