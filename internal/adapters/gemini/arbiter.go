package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/mail-gatekeeper/internal/arbiter"
	"github.com/mikey/mail-gatekeeper/internal/config"
	"github.com/mikey/mail-gatekeeper/internal/core"
	"github.com/mikey/mail-gatekeeper/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

var errEmptyResponse = errors.New("empty response from Gemini")

// Arbiter is an implementation of the core.Arbiter interface using Google Gemini
type Arbiter struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxBodySize   int
	promptStyle   string
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewArbiter creates a new Gemini arbiter
func NewArbiter(
	cfg config.GeminiConfig,
	maxBodySize int,
	promptStyle string,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
) (*Arbiter, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.SetTemperature(cfg.Temperature)
	model.SetTopP(cfg.TopP)
	model.SetMaxOutputTokens(int32(cfg.MaxTokens))

	return &Arbiter{
		client:        client,
		model:         model,
		modelName:     cfg.ModelName,
		maxBodySize:   maxBodySize,
		promptStyle:   promptStyle,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// Close closes the Gemini client
func (a *Arbiter) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// Judge asks Gemini whether the message is personal human correspondence
func (a *Arbiter) Judge(ctx context.Context, subject, bodySnippet string) (*core.ArbiterResult, error) {
	snippet := a.textProcessor.Snippet(bodySnippet, a.maxBodySize)
	prompt := arbiter.Prompt(a.promptStyle, subject, snippet)

	resp, err := a.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, &core.ClassificationServiceError{Provider: "gemini", Transient: true, Err: err}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &core.ClassificationServiceError{Provider: "gemini", Err: errEmptyResponse}
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])

	result, err := arbiter.Parse(responseText)
	if err != nil {
		return nil, &core.ClassificationServiceError{Provider: "gemini", Err: err}
	}
	result.ModelUsed = a.modelName
	return result, nil
}
