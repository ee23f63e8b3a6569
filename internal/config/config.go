package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const minTokenSecretLength = 32

// Config holds application configuration
type Config struct {
	DatabaseURL      string        `yaml:"database_url"       env:"DATABASE_URL"`
	ServerPort       string        `yaml:"server_port"        env:"SERVER_PORT"                 env-default:"8080"`
	BaseURL          string        `yaml:"base_url"           env:"BASE_URL"                    env-default:"http://localhost:8080"`
	FrontendURL      string        `yaml:"frontend_url"       env:"FRONTEND_URL"                env-default:"http://localhost:3000"`
	OpenAIKey        string        `yaml:"openai_api_key"     env:"OPENAI_API_KEY"`
	AIModel          string        `yaml:"ai_model"           env:"AI_MODEL"                    env-default:"gpt-4o-mini"`
	AIBaseURL        string        `yaml:"ai_base_url"        env:"AI_BASE_URL"`
	AITimeout        time.Duration `yaml:"ai_timeout"         env:"AI_TIMEOUT"                  env-default:"30s"`
	EnableHSTS       bool          `yaml:"enable_hsts"        env:"ENABLE_HSTS"                 env-default:"false"`
	TokenSecret      string        `yaml:"token_secret"       env:"AUTH_TOKEN_SECRET"`
	TokenIssuer      string        `yaml:"token_issuer"       env:"AUTH_TOKEN_ISSUER"           env-default:"todo-assistant"`
	TokenTTL         time.Duration `yaml:"token_ttl"          env:"AUTH_TOKEN_TTL"              env-default:"24h"`
	BcryptCost       int           `yaml:"bcrypt_cost"        env:"AUTH_BCRYPT_COST"            env-default:"10"`
	AppTimezone      string        `yaml:"app_timezone"       env:"APP_TIMEZONE"                env-default:"UTC"`
	RedisURL         string        `yaml:"redis_url"          env:"REDIS_URL"                   env-default:"redis://localhost:6379/0"`
	RabbitMQURL      string        `yaml:"rabbitmq_url"       env:"RABBITMQ_URL"`
	RabbitMQPrefetch int           `yaml:"rabbitmq_prefetch"  env:"RABBITMQ_PREFETCH"           env-default:"1"`
	ReportTTL        time.Duration `yaml:"report_ttl"         env:"REPORT_TTL"                  env-default:"24h"`
	WorkerDebugMode  bool          `yaml:"worker_debug_mode"  env:"WORKER_DEBUG_MODE"           env-default:"false"`
	ServerDebugMode  bool          `yaml:"server_debug_mode"  env:"SERVER_DEBUG_MODE"           env-default:"false"`
	OTELEnabled      bool          `yaml:"otel_enabled"       env:"OTEL_ENABLED"                env-default:"false"`
	OTELEndpoint     string        `yaml:"otel_endpoint"      env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads configuration from environment variables. When CONFIG_PATH names
// a YAML file it is read first and the environment overrides it.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that have no usable default
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if len(c.TokenSecret) < minTokenSecretLength {
		return fmt.Errorf("AUTH_TOKEN_SECRET must be at least %d bytes", minTokenSecretLength)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("AUTH_TOKEN_TTL must be positive")
	}
	if _, err := time.LoadLocation(c.AppTimezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.AppTimezone, err)
	}
	if c.RabbitMQPrefetch < 1 {
		return fmt.Errorf("RABBITMQ_PREFETCH must be at least 1")
	}
	return nil
}

// Location returns the configured default timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AsyncReportsEnabled reports whether a broker is configured for summary jobs
func (c *Config) AsyncReportsEnabled() bool {
	return c.RabbitMQURL != ""
}
