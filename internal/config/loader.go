package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TECHGAMES_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if TECHGAMES_CONFIG is set
//  3. env (prefix TECHGAMES_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// TECHGAMES_DATABASE_DSN -> database_dsn; flat keys keep their underscores.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DatabaseDriver != "postgres" && c.DatabaseDriver != "sqlite":
		return fmt.Errorf("%w: database_driver must be postgres or sqlite, got %q", ErrInvalidConfig, c.DatabaseDriver)
	case c.DatabaseDSN == "":
		return fmt.Errorf("%w: database_dsn must not be empty", ErrInvalidConfig)
	case c.OutboundTimeoutMS <= 0:
		return fmt.Errorf("%w: outbound_timeout_ms must be positive", ErrInvalidConfig)
	case c.TemplateOwner == "" || c.TemplateRepo == "":
		return fmt.Errorf("%w: template_owner and template_repo are required", ErrInvalidConfig)
	}
	switch c.IdempotencyBackend {
	case "none", "memory":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis idempotency backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: idempotency_backend must be none, memory or redis, got %q", ErrInvalidConfig, c.IdempotencyBackend)
	}
	if c.Production() && (c.GitHubClientID == "" || c.GitHubClientSecret == "") {
		return fmt.Errorf("%w: github_client_id and github_client_secret are required in production", ErrInvalidConfig)
	}
	return nil
}
