package config

import (
	"log"
	"os"
	"time"
)

// AI provider selection values
const (
	AIProviderOpenAI = "openai"
	AIProviderGemini = "gemini"
	AIProviderMock   = "mock"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	DatabaseURL     string
	RedisURL        string
	Port            string
	Env             string
	LogLevel        string
	LogFormat       string
	AIProvider      string
	OpenAIAPIKey    string
	GeminiAPIKey    string
	YtDlpPath       string
	PublishSchedule string
	Timezone        string
	CacheTTL        time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),
		Port:            getEnvWithDefault("PORT", "8080"),
		Env:             getEnvWithDefault("ENV", "development"),
		LogLevel:        getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:       getEnvWithDefault("LOG_FORMAT", "text"),
		AIProvider:      getEnvWithDefault("AI_PROVIDER", AIProviderOpenAI),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		YtDlpPath:       getEnvWithDefault("YTDLP_PATH", "yt-dlp"),
		PublishSchedule: getEnvWithDefault("PUBLISH_SCHEDULE", "0 9 * * *"),
		Timezone:        getEnvWithDefault("SCHEDULE_TIMEZONE", "UTC"),
		CacheTTL:        getDurationWithDefault("CACHE_TTL", 24*time.Hour),
	}

	// Development without API keys falls back to the deterministic provider
	// so the pipeline stays runnable end to end.
	if cfg.Env == "development" && cfg.OpenAIAPIKey == "" && cfg.GeminiAPIKey == "" && cfg.AIProvider != AIProviderMock {
		log.Println("WARNING: No AI API keys configured, using mock provider")
		cfg.AIProvider = AIProviderMock
	}

	return cfg
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("WARNING: invalid %s value %q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
