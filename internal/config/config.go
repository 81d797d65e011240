// Package config defines service configuration and its loading hooks.
//
// Conventions:
//   - New returns a Config populated with defaults.
//   - Load layers defaults, an optional YAML file and TECHGAMES_* env vars.
//   - Validation failures wrap ErrInvalidConfig.
package config

import "github.com/competemcgill/techgames/internal/domain/provision"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":3000".
	Addr string `koanf:"addr"`

	// Environment gates the template fork: "production" forks, anything
	// else skips it.
	Environment string `koanf:"environment"`

	// DatabaseDriver is postgres or sqlite.
	DatabaseDriver string `koanf:"database_driver"`

	// DatabaseDSN is the driver-specific connection string.
	DatabaseDSN string `koanf:"database_dsn"`

	// GitHubClientID and GitHubClientSecret identify the OAuth app.
	GitHubClientID     string `koanf:"github_client_id"`
	GitHubClientSecret string `koanf:"github_client_secret"`

	// GitHubTokenURL is the OAuth token endpoint.
	GitHubTokenURL string `koanf:"github_token_url"`

	// GitHubAPIURL is the REST API base used for /user and forks.
	GitHubAPIURL string `koanf:"github_api_url"`

	// GitHubWebURL prefixes derived repository URLs.
	GitHubWebURL string `koanf:"github_web_url"`

	// TemplateOwner and TemplateRepo name the repository forked for every
	// new participant.
	TemplateOwner string `koanf:"template_owner"`
	TemplateRepo  string `koanf:"template_repo"`

	// OutboundTimeoutMS bounds each call to GitHub.
	OutboundTimeoutMS int `koanf:"outbound_timeout_ms"`

	// IdempotencyBackend is none, memory or redis.
	IdempotencyBackend string `koanf:"idempotency_backend"`

	// IdempotencyTTLSeconds is how long a submission key is remembered.
	IdempotencyTTLSeconds int `koanf:"idempotency_ttl_seconds"`

	// IdempotencyMaxKeys bounds the memory backend.
	IdempotencyMaxKeys int `koanf:"idempotency_max_keys"`

	// RedisAddr and RedisPassword configure the redis backend.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
}

// Mode is the provisioning mode named by Environment.
func (c *Config) Mode() provision.Mode {
	return provision.ParseMode(c.Environment)
}

// Production reports whether the fork gate is active.
func (c *Config) Production() bool {
	return c.Mode().Production()
}

// New returns a Config with defaults suitable for local development.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":3000",
		Environment:           "development",
		DatabaseDriver:        "postgres",
		DatabaseDSN:           "host=localhost user=techgames dbname=techgames sslmode=disable",
		GitHubTokenURL:        "https://github.com/login/oauth/access_token",
		GitHubAPIURL:          "https://api.github.com",
		GitHubWebURL:          "https://github.com",
		TemplateOwner:         "Compete-McGill",
		TemplateRepo:          "techgames-api-challenge-template",
		OutboundTimeoutMS:     10_000,
		IdempotencyBackend:    "none",
		IdempotencyTTLSeconds: 86_400,
		IdempotencyMaxKeys:    50_000,
	}
}
