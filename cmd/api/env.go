package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// loadDotEnv loads environment variables from .env when present.
// Existing process environment variables are not overridden.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil {
		return nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("load .env: %w", err)
}

// config is the service configuration read from the environment.
type config struct {
	Addr            string
	SessionIdleTTL  time.Duration
	SweepInterval   time.Duration
	MaxSessions     int
	ShutdownTimeout time.Duration
	OTLPLogs        bool
}

func loadConfig() (config, error) {
	cfg := config{
		Addr:            envString("ADDR", ":8080"),
		SessionIdleTTL:  30 * time.Minute,
		SweepInterval:   time.Minute,
		MaxSessions:     10000,
		ShutdownTimeout: 5 * time.Second,
	}

	var err error

	if cfg.SessionIdleTTL, err = envDuration("SESSION_IDLE_TTL", cfg.SessionIdleTTL); err != nil {
		return config{}, err
	}
	if cfg.SweepInterval, err = envDuration("SESSION_SWEEP_INTERVAL", cfg.SweepInterval); err != nil {
		return config{}, err
	}
	if cfg.MaxSessions, err = envInt("MAX_SESSIONS", cfg.MaxSessions); err != nil {
		return config{}, err
	}
	if cfg.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return config{}, err
	}
	if cfg.OTLPLogs, err = envBool("OTEL_LOGS_ENABLED", false); err != nil {
		return config{}, err
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("parse %s: negative duration %s", key, v)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("parse %s: negative value %d", key, n)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}
