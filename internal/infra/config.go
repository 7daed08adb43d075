package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration, read once from the environment.
// The Gemini key is deliberately NOT required here: a missing credential
// surfaces as a service error on the first generation call, never as a
// startup failure.
type Config struct {
	AppEnv            string
	Port              string
	GeminiAPIKey      string
	GeminiBaseURL     string
	GeminiImageModel  string
	GeminiTextModel   string
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	UpstreamTimeout   time.Duration
	RateLimitPerMin   int
	GenerationsPerMin int
	SessionTTL        time.Duration
	MaxUploadBytes    int64
	AllowedOrigins    []string
	DefaultLocale     string
}

// LoadConfig reads the environment and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiImageModel:  getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image-preview"),
		GeminiTextModel:   getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		UpstreamTimeout:   time.Second * time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 120)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		GenerationsPerMin: getEnvInt("GENERATIONS_PER_MINUTE", 10),
		SessionTTL:        time.Minute * time.Duration(getEnvInt("SESSION_TTL_MINUTES", 30)),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_MB", 8)) << 20,
		AllowedOrigins:    splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		DefaultLocale:     getEnv("DEFAULT_LOCALE", "zh"),
	}

	if cfg.RateLimitPerMin <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", cfg.RateLimitPerMin)
	}
	if cfg.GenerationsPerMin <= 0 {
		return nil, fmt.Errorf("GENERATIONS_PER_MINUTE must be positive, got %d", cfg.GenerationsPerMin)
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
