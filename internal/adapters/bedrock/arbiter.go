package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/mail-gatekeeper/internal/arbiter"
	"github.com/mikey/mail-gatekeeper/internal/config"
	"github.com/mikey/mail-gatekeeper/internal/core"
	"github.com/mikey/mail-gatekeeper/internal/utils"
	"go.uber.org/zap"
)

// Arbiter is an implementation of the core.Arbiter interface using Amazon Bedrock
type Arbiter struct {
	client        *bedrockruntime.Client
	modelID       string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	promptStyle   string
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewArbiter creates a new Bedrock arbiter
func NewArbiter(
	cfg config.BedrockConfig,
	maxBodySize int,
	promptStyle string,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
) (*Arbiter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &Arbiter{
		client:        bedrockruntime.NewFromConfig(awsCfg),
		modelID:       cfg.ModelID,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		topP:          cfg.TopP,
		maxBodySize:   maxBodySize,
		promptStyle:   promptStyle,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func (a *Arbiter) isAnthropicModel() bool {
	return strings.HasPrefix(a.modelID, "anthropic.")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (a *Arbiter) isAmazonTitanModel() bool {
	return strings.HasPrefix(a.modelID, "amazon.titan")
}

// Judge asks Bedrock whether the message is personal human correspondence
func (a *Arbiter) Judge(ctx context.Context, subject, bodySnippet string) (*core.ArbiterResult, error) {
	snippet := a.textProcessor.Snippet(bodySnippet, a.maxBodySize)
	prompt := arbiter.Prompt(a.promptStyle, subject, snippet)

	// Build the request payload for the model family
	var payload []byte
	var err error

	if a.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt),
			"max_tokens_to_sample": a.maxTokens,
			"temperature":          a.temperature,
			"top_p":                a.topP,
		})
	} else if a.isAmazonTitanModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": a.maxTokens,
				"temperature":   a.temperature,
				"topP":          a.topP,
			},
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  a.maxTokens,
			"temperature": a.temperature,
			"top_p":       a.topP,
		})
	}
	if err != nil {
		return nil, &core.ClassificationServiceError{Provider: "bedrock", Err: fmt.Errorf("failed to marshal request payload: %w", err)}
	}

	resp, err := a.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &a.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, &core.ClassificationServiceError{Provider: "bedrock", Transient: true, Err: err}
	}

	responseText, err := a.extractResponseText(resp.Body)
	if err != nil {
		return nil, &core.ClassificationServiceError{Provider: "bedrock", Err: err}
	}

	result, err := arbiter.Parse(responseText)
	if err != nil {
		return nil, &core.ClassificationServiceError{Provider: "bedrock", Err: err}
	}
	result.ModelUsed = a.modelID
	return result, nil
}

// extractResponseText pulls the completion text out of the model-specific
// response envelope
func (a *Arbiter) extractResponseText(body []byte) (string, error) {
	if a.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	}

	if a.isAmazonTitanModel() {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	}

	// Try a generic approach
	var genericResp struct {
		Output   string `json:"output"`
		Text     string `json:"text"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &genericResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
	}
	switch {
	case genericResp.Output != "":
		return genericResp.Output, nil
	case genericResp.Text != "":
		return genericResp.Text, nil
	case genericResp.Response != "":
		return genericResp.Response, nil
	default:
		// Just use the raw response as a string
		return string(body), nil
	}
}
