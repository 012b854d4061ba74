package config

import "time"

// GatekeeperConfig represents the top-level run settings
type GatekeeperConfig struct {
	Owner      string
	Profile    string
	DryRun     bool
	BatchSize  int
	Workers    int
	RunTimeout time.Duration
}

// IMAPConfig represents the configuration for the IMAP mail transport
type IMAPConfig struct {
	Server   string
	Username string
	Password string
	Mailbox  string
	Timeout  time.Duration
}

// SMTPConfig represents the configuration for the SMTP challenge sender
type SMTPConfig struct {
	Server   string
	Username string
	Password string
	Timeout  time.Duration
}

// LLMConfig represents the provider-independent LLM arbiter settings
type LLMConfig struct {
	Provider     string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	MaxBodySize  int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// ChallengeConfig represents the challenge-response settings
type ChallengeConfig struct {
	Subject string
	Secret  string
	TTL     time.Duration
}

// TrustStoreConfig represents the trust store settings
type TrustStoreConfig struct {
	Type       string
	Path       string
	Seed       string
	SQLitePath string
	MySQLDSN   string
}

// GetGatekeeper returns the top-level run settings
func (c *Config) GetGatekeeper() (GatekeeperConfig, error) {
	runTimeout, err := c.GetDuration("gatekeeper.run_timeout")
	if err != nil {
		return GatekeeperConfig{}, err
	}
	return GatekeeperConfig{
		Owner:      c.GetString("gatekeeper.owner"),
		Profile:    c.GetString("gatekeeper.profile"),
		DryRun:     c.GetBool("gatekeeper.dry_run"),
		BatchSize:  c.GetInt("gatekeeper.batch_size"),
		Workers:    c.GetInt("gatekeeper.workers"),
		RunTimeout: runTimeout,
	}, nil
}

// GetIMAP returns the IMAP configuration
func (c *Config) GetIMAP() (IMAPConfig, error) {
	timeout, err := c.GetDuration("imap.timeout")
	if err != nil {
		return IMAPConfig{}, err
	}
	return IMAPConfig{
		Server:   c.GetString("imap.server"),
		Username: c.GetString("imap.username"),
		Password: c.GetString("imap.password"),
		Mailbox:  c.GetString("imap.mailbox"),
		Timeout:  timeout,
	}, nil
}

// GetSMTP returns the SMTP configuration
func (c *Config) GetSMTP() (SMTPConfig, error) {
	timeout, err := c.GetDuration("smtp.timeout")
	if err != nil {
		return SMTPConfig{}, err
	}
	return SMTPConfig{
		Server:   c.GetString("smtp.server"),
		Username: c.GetString("smtp.username"),
		Password: c.GetString("smtp.password"),
		Timeout:  timeout,
	}, nil
}

// GetLLM returns the LLM arbiter configuration
func (c *Config) GetLLM() (LLMConfig, error) {
	timeout, err := c.GetDuration("llm.timeout")
	if err != nil {
		return LLMConfig{}, err
	}
	backoff, err := c.GetDuration("llm.retry_backoff")
	if err != nil {
		return LLMConfig{}, err
	}
	return LLMConfig{
		Provider:     c.GetString("llm.provider"),
		Timeout:      timeout,
		MaxRetries:   c.GetInt("llm.max_retries"),
		RetryBackoff: backoff,
		MaxBodySize:  c.GetInt("llm.max_body_size"),
	}, nil
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetChallenge returns the challenge-response configuration
func (c *Config) GetChallenge() (ChallengeConfig, error) {
	ttl, err := c.GetDuration("challenge.ttl")
	if err != nil {
		return ChallengeConfig{}, err
	}
	return ChallengeConfig{
		Subject: c.GetString("challenge.subject"),
		Secret:  c.GetString("challenge.secret"),
		TTL:     ttl,
	}, nil
}

// GetTrustStore returns the trust store configuration
func (c *Config) GetTrustStore() TrustStoreConfig {
	return TrustStoreConfig{
		Type:       c.GetString("truststore.type"),
		Path:       c.GetString("truststore.path"),
		Seed:       c.GetString("truststore.seed"),
		SQLitePath: c.GetString("truststore.sqlite_path"),
		MySQLDSN:   c.GetString("truststore.mysql_dsn"),
	}
}
