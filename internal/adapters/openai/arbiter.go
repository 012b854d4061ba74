package openai

import (
	"context"
	"errors"

	"github.com/mikey/mail-gatekeeper/internal/arbiter"
	"github.com/mikey/mail-gatekeeper/internal/config"
	"github.com/mikey/mail-gatekeeper/internal/core"
	"github.com/mikey/mail-gatekeeper/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var errEmptyResponse = errors.New("empty response from OpenAI")

// Arbiter is an implementation of the core.Arbiter interface using OpenAI
type Arbiter struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	promptStyle   string
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewArbiter creates a new OpenAI arbiter
func NewArbiter(
	cfg config.OpenAIConfig,
	maxBodySize int,
	promptStyle string,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
) *Arbiter {
	client := openai.NewClient(cfg.APIKey)

	return &Arbiter{
		client:        client,
		modelName:     cfg.ModelName,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		topP:          cfg.TopP,
		maxBodySize:   maxBodySize,
		promptStyle:   promptStyle,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Judge asks OpenAI whether the message is personal human correspondence
func (a *Arbiter) Judge(ctx context.Context, subject, bodySnippet string) (*core.ArbiterResult, error) {
	snippet := a.textProcessor.Snippet(bodySnippet, a.maxBodySize)
	prompt := arbiter.Prompt(a.promptStyle, subject, snippet)

	req := openai.ChatCompletionRequest{
		Model: a.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		TopP:        a.topP,
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, &core.ClassificationServiceError{Provider: "openai", Transient: true, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &core.ClassificationServiceError{Provider: "openai", Err: errEmptyResponse}
	}

	result, err := arbiter.Parse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, &core.ClassificationServiceError{Provider: "openai", Err: err}
	}
	result.ModelUsed = a.modelName
	return result, nil
}
