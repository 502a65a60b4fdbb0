package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the voxel agent service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	MaxHistory int

	BrainAdapterMode    string
	BrainHTTPURL        string
	BrainAPIKey         string
	BrainModel          string
	BrainRequestTimeout time.Duration
	BrainMaxAttempts    int

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:            envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:    envOrDefault("APP_METRICS_NAMESPACE", "voxeld"),
		AllowAnyOrigin:      false,
		MaxHistory:          15,
		BrainAdapterMode:    envOrDefault("BRAIN_ADAPTER_MODE", "auto"),
		BrainHTTPURL:        stringsTrimSpace("BRAIN_HTTP_URL"),
		BrainAPIKey:         stringsTrimSpace("BRAIN_API_KEY"),
		BrainModel:          envOrDefault("BRAIN_MODEL", "gpt-4o"),
		BrainRequestTimeout: 60 * time.Second,
		BrainMaxAttempts:    3,
		DatabaseURL:         stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:     15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.BrainRequestTimeout, err = durationFromEnv("BRAIN_REQUEST_TIMEOUT", cfg.BrainRequestTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxHistory, err = intFromEnv("APP_MAX_HISTORY", cfg.MaxHistory)
	if err != nil {
		return Config{}, err
	}
	cfg.BrainMaxAttempts, err = intFromEnv("BRAIN_MAX_ATTEMPTS", cfg.BrainMaxAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.MaxHistory <= 0 {
		return Config{}, fmt.Errorf("APP_MAX_HISTORY must be positive")
	}
	if cfg.BrainMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("BRAIN_MAX_ATTEMPTS must be positive")
	}
	if cfg.BrainRequestTimeout < time.Second {
		return Config{}, fmt.Errorf("BRAIN_REQUEST_TIMEOUT must be at least 1s")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
