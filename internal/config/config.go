package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DataDir       string
	FlashcardsDir string
	LogLevel      string

	// Upstream conversation source.
	SourceBaseURL string
	SessionToken  string

	// LLM extraction/classification.
	OpenAIAPIKey string
	OpenAIModel  string

	// Mochi upload.
	MochiAPIKey  string
	MochiDeckID  string
	MochiBaseURL string

	// Optional integrations.
	DatabaseURL string
	NatsURL     string
	NatsToken   string
	StatusPort  int

	// Pacing around external services.
	RequestTimeout time.Duration
	UploadDelay    time.Duration
	MaxRetries     int
}

func Load() Config {
	return Config{
		DataDir:        envStr("ANKIFY_DATA_DIR", "./data"),
		FlashcardsDir:  envStr("ANKIFY_FLASHCARDS_DIR", "./flashcards"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		SourceBaseURL:  envStr("ANKIFY_SOURCE_URL", "https://chatgpt.com/backend-api"),
		SessionToken:   envStr("ANKIFY_SESSION_TOKEN", ""),
		OpenAIAPIKey:   envStr("OPENAI_API_KEY", ""),
		OpenAIModel:    envStr("ANKIFY_MODEL", "gpt-4o"),
		MochiAPIKey:    envStr("MOCHI_API_KEY", ""),
		MochiDeckID:    envStr("MOCHI_DECK_ID", ""),
		MochiBaseURL:   envStr("MOCHI_BASE_URL", "https://app.mochi.cards/api"),
		DatabaseURL:    envStr("ANKIFY_DATABASE_URL", ""),
		NatsURL:        envStr("NATS_URL", ""),
		NatsToken:      envStr("NATS_TOKEN", ""),
		StatusPort:     envInt("ANKIFY_STATUS_PORT", 0),
		RequestTimeout: envDuration("ANKIFY_REQUEST_TIMEOUT", 30*time.Second),
		UploadDelay:    envDuration("ANKIFY_UPLOAD_DELAY", 500*time.Millisecond),
		MaxRetries:     envInt("ANKIFY_MAX_RETRIES", 3),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
