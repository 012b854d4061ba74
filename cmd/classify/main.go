package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mikey/mail-gatekeeper/internal/adapters/mime"
	"github.com/mikey/mail-gatekeeper/internal/config"
	"github.com/mikey/mail-gatekeeper/internal/factory"
	"github.com/mikey/mail-gatekeeper/internal/heuristics"
	"github.com/mikey/mail-gatekeeper/internal/logging"
	"github.com/mikey/mail-gatekeeper/internal/utils"
	"go.uber.org/zap"
)

var (
	// LLM provider flags
	provider    = flag.String("provider", "openai", "LLM provider (openai, gemini, bedrock)")
	maxTokens   = flag.Int("max-tokens", 1000, "Maximum tokens for LLM response")
	temperature = flag.Float64("temperature", 0.0, "Temperature for LLM generation")
	topP        = flag.Float64("top-p", 0.9, "Top-p for LLM generation")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4o-mini", "OpenAI model name")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Classification flags
	profileName = flag.String("profile", "lenient", "Classification profile (lenient, paranoid)")
	skipLLM     = flag.Bool("skip-llm", false, "Run only the heuristic stages")

	// Input flags
	inputFile = flag.String("file", "", "Input email file (use stdin if not specified)")
	verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog   = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	profile, err := heuristics.ProfileByName(*profileName)
	if err != nil {
		logger.Fatal("Unknown profile", zap.Error(err))
	}

	// Read email from file or stdin
	var emailReader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", *inputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	raw, err := io.ReadAll(emailReader)
	if err != nil {
		logger.Fatal("Failed to read email", zap.Error(err))
	}

	textProcessor := utils.NewTextProcessor(logger)
	normalizer := mime.NewNormalizer(profile.MaxBodySize, textProcessor, logger)
	msg, err := normalizer.Normalize(raw)
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	// Print email summary
	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", msg.Sender)
	fmt.Printf("Subject: %s\n", msg.Subject)
	fmt.Printf("Body length: %d bytes\n", len(msg.Body))
	fmt.Printf("Profile: %s\n", profile.Name)
	fmt.Printf("\n=== Analysis ===\n")

	// Header heuristic
	header := heuristics.NewHeaderClassifier(nil, logger)
	if hr := header.Classify(msg); hr.IsBot {
		fmt.Printf("Verdict: bot (header heuristic)\n")
		fmt.Printf("Reason: %s\n", hr.Reason)
		return
	}
	fmt.Printf("Header heuristic: inconclusive\n")

	// Lexical heuristic
	score := profile.Score(msg.Subject, msg.Body)
	fmt.Printf("Lexical score: %.1f (threshold %.1f)\n", score.Total, profile.Threshold)
	if score.IsSpam {
		fmt.Printf("Verdict: bot (lexical heuristic)\n")
		fmt.Printf("Reason: %s\n", score.Reason())
		return
	}

	if *skipLLM {
		fmt.Printf("Verdict: would be referred to the LLM arbiter (skipped)\n")
		return
	}

	// LLM arbitration
	cfg := createConfigFromFlags()
	arbiterFactory := factory.NewArbiterFactory(cfg, logger, textProcessor)
	judge, err := arbiterFactory.CreateArbiter(profile)
	if err != nil {
		logger.Fatal("Failed to create LLM arbiter", zap.Error(err))
	}
	defer func() {
		if closer, ok := judge.(interface{ Close() error }); ok {
			closer.Close()
		}
	}()

	startTime := time.Now()
	result, err := judge.Judge(context.Background(), msg.Subject, msg.Body)
	if err != nil {
		fmt.Printf("Verdict: bot (classifier unavailable, failing closed)\n")
		fmt.Printf("Reason: %v\n", err)
		return
	}

	fmt.Printf("Model used: %s\n", result.ModelUsed)
	fmt.Printf("Processing time: %v\n", time.Since(startTime))
	if result.Human {
		fmt.Printf("Verdict: human (would be challenged before delivery)\n")
	} else {
		fmt.Printf("Verdict: bot (LLM arbiter)\n")
	}
	fmt.Printf("Reason: %s\n", result.Reason)
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	// Set LLM provider
	v.Set("llm.provider", *provider)

	// Set provider-specific configuration
	switch *provider {
	case "openai":
		v.Set("openai.api_key", strings.TrimSpace(*openaiAPIKey))
		v.Set("openai.model_name", *openaiModelName)
		v.Set("openai.max_tokens", *maxTokens)
		v.Set("openai.temperature", *temperature)
		v.Set("openai.top_p", *topP)
	case "gemini":
		v.Set("gemini.api_key", strings.TrimSpace(*geminiAPIKey))
		v.Set("gemini.model_name", *geminiModelName)
		v.Set("gemini.max_tokens", *maxTokens)
		v.Set("gemini.temperature", *temperature)
		v.Set("gemini.top_p", *topP)
	case "bedrock":
		v.Set("bedrock.region", *bedrockRegion)
		v.Set("bedrock.model_id", *bedrockModelID)
		v.Set("bedrock.max_tokens", *maxTokens)
		v.Set("bedrock.temperature", *temperature)
		v.Set("bedrock.top_p", *topP)
	}

	return config.NewFromViper(v)
}
