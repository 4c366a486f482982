package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const namespace = "PLANNER"

// Config keeps runtime settings. Every key is read as PLANNER_<KEY> first and
// falls back to the bare <KEY>.
type Config struct {
	TelegramToken    string `envconfig:"TELEGRAM_TOKEN"`
	DatabaseURL      string `envconfig:"DATABASE_URL" default:"weekly_planner.db"`
	Timezone         string `envconfig:"TIMEZONE" default:"Local"`
	RolloverSchedule string `envconfig:"ROLLOVER_SCHEDULE" default:"MON 00:05"`
	Workers          int    `envconfig:"WORKERS" default:"4"`
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddr         string `envconfig:"HTTP_ADDR"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(namespace, &cfg); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("WORKERS must be positive, got %d", cfg.Workers)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RequireTelegram reports whether the bot can be started.
func (c *Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}
	return nil
}

// Location resolves Timezone; the current week is computed in it.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) SlogLevel() slog.Level {
	if c == nil {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
