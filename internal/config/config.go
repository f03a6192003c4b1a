package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ProviderSettings holds the credential and model of one LLM backend.
type ProviderSettings struct {
	APIKey string
	Model  string
}

// AIConfig groups the analysis settings.
type AIConfig struct {
	Provider           string
	FallbackProvider   string
	Gemini             ProviderSettings
	Groq               ProviderSettings
	OpenAI             ProviderSettings
	Anthropic          ProviderSettings
	MaxRetries         int
	Timeout            time.Duration
	EnableCache        bool
	CacheTTL           time.Duration
	CacheBackend       string
	DedupeInFlight     bool
	RateLimitPerMinute int
}

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName      string
	AppEnv       string
	AppPort      string
	AllowOrigins []string
	AccessLog    bool
	DatabaseURL  string
	RedisURL     string
	NATSURL      string
	NATSSubject  string
	JWTSecret    string
	AI           AIConfig
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("NERUS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "NERUS API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.access_log", false)
	v.SetDefault("nats.subject", "nerus.reviews")
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.fallback_provider", "groq")
	v.SetDefault("gemini_model", "gemini-1.5-flash")
	v.SetDefault("groq_model", "llama-3.1-70b-versatile")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("anthropic_model", "claude-sonnet-4-20250514")
	v.SetDefault("ai.max_retries", 3)
	v.SetDefault("ai.timeout_seconds", 30)
	v.SetDefault("ai.enable_cache", true)
	v.SetDefault("ai.cache_ttl_hours", 24)
	v.SetDefault("ai.cache_backend", "memory")
	v.SetDefault("ai.dedupe_inflight", false)
	v.SetDefault("ai.rate_limit_per_minute", 10)
}

func fromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)

	timeoutSeconds := v.GetInt("ai.timeout_seconds")
	if timeoutSeconds <= 0 {
		return Config{}, fmt.Errorf("invalid ai timeout: %d seconds", timeoutSeconds)
	}

	ttlHours := v.GetFloat64("ai.cache_ttl_hours")
	if ttlHours <= 0 {
		return Config{}, fmt.Errorf("invalid ai cache ttl: %v hours", ttlHours)
	}

	cfg := Config{
		AppName:      v.GetString("app.name"),
		AppEnv:       v.GetString("app.env"),
		AppPort:      v.GetString("app.port"),
		AllowOrigins: splitList(v.GetString("app.cors_origins")),
		AccessLog:    v.GetBool("app.access_log"),
		DatabaseURL:  v.GetString("database.url"),
		RedisURL:     v.GetString("redis.url"),
		NATSURL:      v.GetString("nats.url"),
		NATSSubject:  v.GetString("nats.subject"),
		JWTSecret:    v.GetString("jwt.secret"),
		AI: AIConfig{
			Provider:         strings.ToLower(strings.TrimSpace(v.GetString("ai.provider"))),
			FallbackProvider: strings.ToLower(strings.TrimSpace(v.GetString("ai.fallback_provider"))),
			Gemini: ProviderSettings{
				APIKey: v.GetString("gemini_api_key"),
				Model:  v.GetString("gemini_model"),
			},
			Groq: ProviderSettings{
				APIKey: v.GetString("groq_api_key"),
				Model:  v.GetString("groq_model"),
			},
			OpenAI: ProviderSettings{
				APIKey: v.GetString("openai_api_key"),
				Model:  v.GetString("openai_model"),
			},
			Anthropic: ProviderSettings{
				APIKey: v.GetString("anthropic_api_key"),
				Model:  v.GetString("anthropic_model"),
			},
			MaxRetries:         v.GetInt("ai.max_retries"),
			Timeout:            time.Duration(timeoutSeconds) * time.Second,
			EnableCache:        v.GetBool("ai.enable_cache"),
			CacheTTL:           time.Duration(ttlHours * float64(time.Hour)),
			CacheBackend:       strings.ToLower(strings.TrimSpace(v.GetString("ai.cache_backend"))),
			DedupeInFlight:     v.GetBool("ai.dedupe_inflight"),
			RateLimitPerMinute: v.GetInt("ai.rate_limit_per_minute"),
		},
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	switch cfg.AI.CacheBackend {
	case "memory":
	case "redis":
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("redis url must be provided when ai cache backend is redis")
		}
	default:
		return Config{}, fmt.Errorf("unsupported ai cache backend %q", cfg.AI.CacheBackend)
	}

	if cfg.AI.RateLimitPerMinute <= 0 {
		cfg.AI.RateLimitPerMinute = 10
	}

	return cfg, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
