package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	AdminKey       string        `mapstructure:"ADMIN_KEY"`

	// Data providers
	DataBackend  string `mapstructure:"DATA_BACKEND"` // file | postgres
	DataDir      string `mapstructure:"DATA_DIR"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	MaxResults   int    `mapstructure:"MAX_RESULTS"`
	DefaultLimit int    `mapstructure:"DEFAULT_LIMIT"`

	// LLM backend
	EnableLLM      bool    `mapstructure:"ENABLE_LLM"`
	LLMBaseURL     string  `mapstructure:"LLM_BASE_URL"`
	LLMModel       string  `mapstructure:"LLM_MODEL"`
	LLMAPIKey      string  `mapstructure:"LLM_API_KEY"`
	LLMMaxTokens   int     `mapstructure:"LLM_MAX_TOKENS"`
	LLMTemperature float64 `mapstructure:"LLM_TEMPERATURE"`

	// Authentication
	AuthEnabled bool   `mapstructure:"AUTH_ENABLED"`
	APIKeysFile string `mapstructure:"API_KEYS_FILE"`

	// Rate limiting
	RateLimitEnabled bool    `mapstructure:"RATE_LIMIT_ENABLED"`
	RateLimitRPS     float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int     `mapstructure:"RATE_LIMIT_BURST"`

	// Cache
	CacheEnabled bool          `mapstructure:"CACHE_ENABLED"`
	RedisURL     string        `mapstructure:"REDIS_URL"`
	CacheTTL     time.Duration `mapstructure:"CACHE_TTL"`

	// Export
	ExportEnabled    bool `mapstructure:"EXPORT_ENABLED"`
	ExportMaxRecords int  `mapstructure:"EXPORT_MAX_RECORDS"`

	// Webhooks
	WebhookEnabled bool          `mapstructure:"WEBHOOK_ENABLED"`
	WebhookTimeout time.Duration `mapstructure:"WEBHOOK_TIMEOUT"`
	WebhookRetries int           `mapstructure:"WEBHOOK_MAX_RETRIES"`
	WebhooksFile   string        `mapstructure:"WEBHOOKS_FILE"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("REQUEST_TIMEOUT", "30s")

	v.SetDefault("DATA_BACKEND", "file")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("MAX_RESULTS", 100)
	v.SetDefault("DEFAULT_LIMIT", 10)

	v.SetDefault("ENABLE_LLM", true)
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_MAX_TOKENS", 1000)
	v.SetDefault("LLM_TEMPERATURE", 0.7)

	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("API_KEYS_FILE", "api_keys.json")

	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("CACHE_TTL", "1h")

	v.SetDefault("EXPORT_ENABLED", true)
	v.SetDefault("EXPORT_MAX_RECORDS", 10000)

	v.SetDefault("WEBHOOK_ENABLED", false)
	v.SetDefault("WEBHOOK_TIMEOUT", "10s")
	v.SetDefault("WEBHOOK_MAX_RETRIES", 3)
	v.SetDefault("WEBHOOKS_FILE", "webhooks.json")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
