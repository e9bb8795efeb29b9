// Package config loads runtime settings for the goSession binaries from the
// environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates the settings shared by the goSession binaries.
type Config struct {
	Auth    AuthConfig
	Storage StorageConfig
	Redis   RedisConfig
	Logger  LoggerConfig
}

type AuthConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

type StorageConfig struct {
	// Driver is one of "bolt", "redis" or "memory".
	Driver string
	Path   string
	Bucket string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// Load reads configuration from environment variables, after loading the given
// .env files (or ".env" when none are given). Missing files are ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}

	cfg := &Config{
		Auth: AuthConfig{
			BaseURL:        getString("GOSESSION_BASE_URL", "http://localhost:9191"),
			RequestTimeout: getDuration("GOSESSION_REQUEST_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			Driver: getString("GOSESSION_STORAGE", "bolt"),
			Path:   getString("GOSESSION_STORAGE_PATH", defaultStoragePath()),
			Bucket: getString("GOSESSION_STORAGE_BUCKET", "session"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
			Prefix:   getString("GOSESSION_REDIS_PREFIX", "gosession"),
			TTL:      getDuration("GOSESSION_REDIS_TTL", 0),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "console"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.Auth.BaseURL == "" {
		return errors.New("config: GOSESSION_BASE_URL is required")
	}
	if c.Auth.RequestTimeout <= 0 {
		return errors.New("config: GOSESSION_REQUEST_TIMEOUT must be positive")
	}
	switch c.Storage.Driver {
	case "bolt":
		if c.Storage.Path == "" {
			return errors.New("config: GOSESSION_STORAGE_PATH is required for bolt storage")
		}
	case "redis", "memory":
	default:
		return errors.New("config: GOSESSION_STORAGE must be bolt, redis or memory")
	}
	return nil
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "gosession.db"
	}
	return dir + string(os.PathSeparator) + "gosession" + string(os.PathSeparator) + "session.db"
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
