package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Fetcher   FetcherConfig
	Pipeline  PipelineConfig
	Analyzer  AnalyzerConfig
	Store     StoreConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// FetcherConfig controls the outbound page fetch.
type FetcherConfig struct {
	// Timeout bounds the single GET attempt.
	Timeout time.Duration // default: 30s

	// UserAgent is sent on every outbound request.
	UserAgent string

	// Proxy is an optional proxy URL ("http://..." or "socks5://...").
	Proxy string

	// MaxBodyBytes caps how much of the response body is read.
	MaxBodyBytes int64 // default: 10 MB
}

// PipelineConfig controls per-request orchestration.
type PipelineConfig struct {
	// Budget is the overall wall-clock ceiling for one request,
	// including fetch and analysis.
	Budget time.Duration // default: 60s
}

// AnalyzerConfig controls the Gemini analysis client.
type AnalyzerConfig struct {
	// APIKey enables AI analysis when non-empty. With no key, nerd-mode
	// requests still succeed but report analysis as unavailable.
	APIKey string

	// Model is the Gemini model name.
	Model string // default: "gemini-2.5-flash"
}

// StoreConfig controls scrape history persistence.
type StoreConfig struct {
	// Path is the SQLite database path. ":memory:" for ephemeral storage.
	Path string // default: "pagelens.db"

	// ListLimit is the default page size for GET /scrapes.
	ListLimit int // default: 50
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-identity rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per identity.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per identity.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultUserAgent matches a common desktop browser so that pages serve
// their normal markup.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PAGELENS_HOST", "0.0.0.0"),
			Port: envIntOr("PAGELENS_PORT", 8080),
			Mode: envOr("PAGELENS_MODE", "release"),
		},
		Fetcher: FetcherConfig{
			Timeout:      envDurationOr("PAGELENS_FETCH_TIMEOUT", 30*time.Second),
			UserAgent:    envOr("PAGELENS_USER_AGENT", DefaultUserAgent),
			Proxy:        os.Getenv("PAGELENS_PROXY"),
			MaxBodyBytes: int64(envIntOr("PAGELENS_MAX_BODY_BYTES", 10*1024*1024)),
		},
		Pipeline: PipelineConfig{
			Budget: envDurationOr("PAGELENS_REQUEST_BUDGET", 60*time.Second),
		},
		Analyzer: AnalyzerConfig{
			APIKey: envOr("GEMINI_API_KEY", ""),
			Model:  envOr("PAGELENS_GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Store: StoreConfig{
			Path:      envOr("PAGELENS_DB_PATH", "pagelens.db"),
			ListLimit: envIntOr("PAGELENS_LIST_LIMIT", 50),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PAGELENS_AUTH_ENABLED", false),
			APIKeys: envSliceOr("PAGELENS_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PAGELENS_RATE_RPS", 5.0),
			Burst:             envIntOr("PAGELENS_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("PAGELENS_LOG_LEVEL", "info"),
			Format: envOr("PAGELENS_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
