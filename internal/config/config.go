package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" default:"5000"`

	GitHubToken  string `envconfig:"GITHUB_TOKEN"`
	GitHubAPIURL string `envconfig:"GITHUB_API_URL" default:"https://api.github.com"`

	LLMBaseURL string `envconfig:"LLM_BASE_URL" default:"https://api.openai.com/v1"`
	LLMAPIKey  string `envconfig:"LLM_API_KEY"`
	LLMModel   string `envconfig:"LLM_MODEL" default:"gpt-3.5-turbo"`

	// OpenAIAPIKey is read so existing deployments that only set
	// OPENAI_API_KEY keep working.
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	DBURL string `envconfig:"DB_URL" default:"sqlite:///libfinder.db"`

	SurrealURL  string `envconfig:"SURREAL_URL"`
	SurrealNS   string `envconfig:"SURREAL_NS" default:"libfinder"`
	SurrealDB   string `envconfig:"SURREAL_DB" default:"libfinder"`
	SurrealUser string `envconfig:"SURREAL_USER"`
	SurrealPass string `envconfig:"SURREAL_PASS"`

	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"20s"`
	FanoutLimit     int           `envconfig:"FANOUT_LIMIT" default:"10"`
	ExpandTerms     bool          `envconfig:"EXPAND_TERMS" default:"true"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = cfg.OpenAIAPIKey
	}
	cfg.LLMBaseURL = strings.TrimSuffix(cfg.LLMBaseURL, "/")
	cfg.GitHubAPIURL = strings.TrimSuffix(cfg.GitHubAPIURL, "/")

	// The SDK appends /rpc automatically
	cfg.SurrealURL = strings.TrimSuffix(cfg.SurrealURL, "/rpc")
	cfg.SurrealURL = strings.TrimSuffix(cfg.SurrealURL, "/")

	if cfg.FanoutLimit <= 0 {
		cfg.FanoutLimit = 10
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 20 * time.Second
	}

	return &cfg, nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AllowedOrigins splits CORSOrigins on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// UseSurreal reports whether the SurrealDB backend is configured.
func (c *Config) UseSurreal() bool {
	return c.SurrealURL != ""
}
