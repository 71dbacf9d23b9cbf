// Package config loads podcastrag settings from the environment and an optional policy file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported model providers.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// StoreRedialInterval throttles reconnect attempts while the graph is down.
	StoreRedialInterval time.Duration

	// Embedding
	OllamaHost     string
	EmbedProvider  string
	EmbedModel     string
	EmbedDimension int
	EmbedCacheSize int
	EmbedCacheTTL  time.Duration

	// Language model
	LLMProvider     string
	LLMModel        string
	LLMMaxTokens    int
	LLMTemperature  float64
	LLMRateLimit    float64
	OpenAIAPIKey    string
	AnthropicAPIKey string
	AWSRegion       string

	// Retrieval and context policy
	Policy Policy

	// Token counting
	TokenCountModel string

	// Logging
	LogFile         string
	LogLevel        slog.Level
	PipelineLogFile string

	// HTTP server
	ServerPort string
	AskTimeout time.Duration
}

// Load reads configuration from a .env file (if present), the environment,
// and the policy file named by PODCASTRAG_POLICY_FILE.
func Load() (Config, error) {
	// Missing .env is fine; the environment alone is enough.
	_ = godotenv.Load()

	cfg := Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "podcast"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "graph"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		StoreRedialInterval: getEnvDuration("STORE_REDIAL_INTERVAL", 5*time.Second),

		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),
		EmbedProvider:  getEnv("EMBED_PROVIDER", ProviderOllama),
		EmbedModel:     getEnv("EMBED_MODEL", "all-minilm:l6-v2"),
		EmbedDimension: getEnvInt("EMBED_DIMENSION", 384),
		EmbedCacheSize: getEnvInt("EMBED_CACHE_SIZE", 256),
		EmbedCacheTTL:  getEnvDuration("EMBED_CACHE_TTL", 10*time.Minute),

		LLMProvider:     getEnv("LLM_PROVIDER", ProviderOpenAI),
		LLMModel:        getEnv("LLM_MODEL", "gpt-4o-mini-2024-07-18"),
		LLMMaxTokens:    getEnvInt("LLM_MAX_TOKENS", 512),
		LLMTemperature:  getEnvFloat("LLM_TEMPERATURE", 0.2),
		LLMRateLimit:    getEnvFloat("LLM_RATE_LIMIT", 0),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),

		Policy: DefaultPolicy(),

		TokenCountModel: getEnv("TOKEN_COUNT_MODEL", "gpt-4o-mini-2024-07-18"),

		LogFile:         getEnv("PODCASTRAG_LOG_FILE", "/tmp/podcastrag.log"),
		LogLevel:        parseLogLevel(getEnv("PODCASTRAG_LOG_LEVEL", "INFO")),
		PipelineLogFile: getEnv("PIPELINE_LOG_FILE", "pipeline_log.jsonl"),

		ServerPort: getEnv("PODCASTRAG_SERVER_PORT", "8484"),
		AskTimeout: getEnvDuration("PODCASTRAG_ASK_TIMEOUT", 2*time.Minute),
	}

	if path := os.Getenv("PODCASTRAG_POLICY_FILE"); path != "" {
		p, err := LoadPolicy(path, cfg.Policy)
		if err != nil {
			return Config{}, err
		}
		cfg.Policy = p
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.EmbedDimension <= 0 {
		errs = append(errs, fmt.Errorf("EMBED_DIMENSION must be positive, got %d", c.EmbedDimension))
	}
	if c.LLMMaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.LLMMaxTokens))
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		errs = append(errs, fmt.Errorf("LLM_TEMPERATURE must be within [0, 2], got %g", c.LLMTemperature))
	}
	if c.LLMRateLimit < 0 {
		errs = append(errs, fmt.Errorf("LLM_RATE_LIMIT must not be negative, got %g", c.LLMRateLimit))
	}
	if c.AskTimeout < 0 {
		errs = append(errs, fmt.Errorf("PODCASTRAG_ASK_TIMEOUT must not be negative, got %s", c.AskTimeout))
	}
	if err := c.Policy.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
