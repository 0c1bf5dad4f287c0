// Package config loads process configuration from the environment.
//
// Everything is read once at startup and never mutated afterwards — the rest
// of the application receives the Config by value. Parsing is handled by
// caarlos0/env struct tags; main additionally loads a .env file (if present)
// before calling Load, so local development doesn't need exported variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	Debug  bool   `env:"DEBUG" envDefault:"false"`
	DBPath string `env:"DB_PATH" envDefault:"data/auth.db"`

	// JWTSecret signs session tokens. At least 16 chars; generate with
	// openssl rand -hex 32.
	JWTSecret string `env:"JWT_SECRET"`

	GoogleClientID     string `env:"GOOGLE_OAUTH2_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_OAUTH2_SECRET"`
	GitHubClientID     string `env:"GITHUB_OAUTH2_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_OAUTH2_SECRET"`

	// AllowedOrigins is the CORS allow-list for the frontend(s), comma
	// separated. Defaults cover local Vite development.
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:8000"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("config: JWT_SECRET must be set")
	}
	return cfg, nil
}
