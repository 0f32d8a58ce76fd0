// Package config loads the server configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata" // APP_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config contains server configuration parameters.
type Config struct {
	Port        int    `env:"PORT"         envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"`
	DBPath      string `env:"DB_PATH"      envDefault:"data/challenges.db"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	Timezone    string `env:"APP_TIMEZONE" envDefault:"Asia/Seoul"`
	RedisURL    string `env:"REDIS_URL"`

	JWT    JWT    `envPrefix:"JWT_"`
	Cookie Cookie `envPrefix:"COOKIE_"`
	Kakao  Kakao  `envPrefix:"KAKAO_"`
}

// JWT contains session token parameters.
type JWT struct {
	Secret string        `env:"SECRET" envDefault:"dev-secret-change-me-please"`
	TTL    time.Duration `env:"TTL"    envDefault:"24h"`
}

// Cookie contains session cookie parameters.
type Cookie struct {
	Secure bool `env:"SECURE" envDefault:"false"`
}

// Kakao contains the app credentials from the Kakao developer console.
// The URL overrides exist for staging and tests; empty means production.
type Kakao struct {
	RestAPIKey   string `env:"REST_API_KEY"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURI  string `env:"REDIRECT_URI" envDefault:"http://localhost:8080/auth/kakao/callback"`
	AuthURL      string `env:"AUTH_URL"`
	TokenURL     string `env:"TOKEN_URL"`
	ProfileURL   string `env:"PROFILE_URL"`
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// Load reads the given .env files into the environment (variables that are
// already set win) and then calls NewConfig. Missing files are skipped.
func Load(dotenvFiles ...string) (*Config, error) {
	for _, file := range dotenvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return NewConfig()
}

// SlogLevel maps LOG_LEVEL (debug, info, warn, error) to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Location resolves APP_TIMEZONE, the zone that decides which calendar
// day is "today" for progress updates.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
