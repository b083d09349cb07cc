// Package config loads session store settings from an optional JSON file
// overlaid with SESSIONSTORE_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Config selects and configures a session store backend.
type Config struct {
	Store    string         `json:"store" env:"SESSIONSTORE_STORE"`
	Table    string         `json:"table" env:"SESSIONSTORE_TABLE"`
	Database DatabaseConfig `json:"database"`
	Redis    RedisConfig    `json:"redis"`
	Supabase SupabaseConfig `json:"supabase"`
	Log      LogConfig      `json:"log"`
}

// DatabaseConfig configures the SQL store.
type DatabaseConfig struct {
	Driver       string `json:"driver" env:"SESSIONSTORE_DB_DRIVER"`
	DSN          string `json:"dsn" env:"SESSIONSTORE_DB_DSN"`
	HistoryTable string `json:"history_table" env:"SESSIONSTORE_DB_HISTORY_TABLE"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr     string   `json:"addr" env:"SESSIONSTORE_REDIS_ADDR"`
	Password string   `json:"password" env:"SESSIONSTORE_REDIS_PASSWORD"`
	DB       int      `json:"db" env:"SESSIONSTORE_REDIS_DB"`
	TTL      Duration `json:"ttl" env:"SESSIONSTORE_REDIS_TTL"`
}

// SupabaseConfig configures the Supabase store.
type SupabaseConfig struct {
	URL    string `json:"url" env:"SESSIONSTORE_SUPABASE_URL"`
	APIKey string `json:"api_key" env:"SESSIONSTORE_SUPABASE_API_KEY"`
}

// LogConfig configures the command line tools' logger.
type LogConfig struct {
	Level  string `json:"level" env:"SESSIONSTORE_LOG_LEVEL"`
	Format string `json:"format" env:"SESSIONSTORE_LOG_FORMAT"`
}

// DefaultConfig returns a configuration for an SQLite file in the working
// directory.
func DefaultConfig() *Config {
	return &Config{
		Store: "sql",
		Table: "session",
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "sessions.db",
			HistoryTable: "schema_migrations",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the JSON file at path over the defaults, then applies the
// environment. A missing file is not an error; an empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, err
		default:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Store {
	case "memory":
	case "sql":
		if c.Database.Driver == "" || c.Database.DSN == "" {
			return fmt.Errorf("config: sql store needs database driver and dsn")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis store needs an address")
		}
	case "supabase":
		if c.Supabase.URL == "" || c.Supabase.APIKey == "" {
			return fmt.Errorf("config: supabase store needs url and api key")
		}
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	return nil
}
