// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ericfisherdev/supportdesk/internal/cipher"
	"github.com/ericfisherdev/supportdesk/internal/domain/model"
)

// Supported language-model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	EncryptionKey string
	JWTSecret     string
	ListenAddr    string
	DBPath        string

	LLMProvider string
	LLMAPIKey   string
	LLMBaseURL  string
	LLMModel    string

	AgentMaxSteps        int
	VapiBaseURL          string
	SessionSweepInterval time.Duration
}

// HasLLMCredentials reports whether a language-model API key is configured.
// Used by the composition root to decide whether to create a real model at
// startup or start with an empty provider.
func (c *Config) HasLLMCredentials() bool {
	return c.LLMAPIKey != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// SUPPORTDESK_ENCRYPTION_KEY and SUPPORTDESK_JWT_SECRET are required; there is no
// built-in fallback secret. Optional variables with defaults:
// SUPPORTDESK_LISTEN_ADDR (127.0.0.1:8080), SUPPORTDESK_DB_PATH (supportdesk.db),
// SUPPORTDESK_LLM_PROVIDER (openai), SUPPORTDESK_LLM_MODEL (per provider),
// SUPPORTDESK_AGENT_MAX_STEPS (4), SUPPORTDESK_VAPI_BASE_URL (https://api.vapi.ai),
// SUPPORTDESK_SESSION_SWEEP_INTERVAL (1h).
func Load() (*Config, error) {
	encryptionKey := os.Getenv("SUPPORTDESK_ENCRYPTION_KEY")
	if encryptionKey == "" {
		return nil, fmt.Errorf("SUPPORTDESK_ENCRYPTION_KEY is not set: %w", model.ErrConfigurationMissing)
	}
	if _, err := cipher.DeriveKey(encryptionKey); err != nil {
		return nil, fmt.Errorf("SUPPORTDESK_ENCRYPTION_KEY is unusable: %w", err)
	}

	jwtSecret := os.Getenv("SUPPORTDESK_JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("SUPPORTDESK_JWT_SECRET is not set: %w", model.ErrConfigurationMissing)
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("SUPPORTDESK_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "supportdesk.db"
	if v, ok := os.LookupEnv("SUPPORTDESK_DB_PATH"); ok {
		dbPath = v
	}

	provider := ProviderOpenAI
	if v, ok := os.LookupEnv("SUPPORTDESK_LLM_PROVIDER"); ok && v != "" {
		provider = v
	}
	llmModel, known := defaultModels[provider]
	if !known {
		return nil, fmt.Errorf("SUPPORTDESK_LLM_PROVIDER has unknown provider %q", provider)
	}
	if v, ok := os.LookupEnv("SUPPORTDESK_LLM_MODEL"); ok && v != "" {
		llmModel = v
	}

	maxSteps := 4
	if v, ok := os.LookupEnv("SUPPORTDESK_AGENT_MAX_STEPS"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("SUPPORTDESK_AGENT_MAX_STEPS must be a positive integer, got %q", v)
		}
		maxSteps = parsed
	}

	vapiBaseURL := "https://api.vapi.ai"
	if v, ok := os.LookupEnv("SUPPORTDESK_VAPI_BASE_URL"); ok && v != "" {
		vapiBaseURL = v
	}

	sweepInterval := time.Hour
	if v, ok := os.LookupEnv("SUPPORTDESK_SESSION_SWEEP_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SUPPORTDESK_SESSION_SWEEP_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("SUPPORTDESK_SESSION_SWEEP_INTERVAL must be positive, got %q", v)
		}
		sweepInterval = parsed
	}

	return &Config{
		EncryptionKey: encryptionKey,
		JWTSecret:     jwtSecret,
		ListenAddr:    listenAddr,
		DBPath:        dbPath,
		LLMProvider:   provider,
		LLMAPIKey:     os.Getenv("SUPPORTDESK_LLM_API_KEY"),
		LLMBaseURL:    os.Getenv("SUPPORTDESK_LLM_BASE_URL"),
		LLMModel:      llmModel,
		AgentMaxSteps: maxSteps,
		VapiBaseURL:   vapiBaseURL,

		SessionSweepInterval: sweepInterval,
	}, nil
}
