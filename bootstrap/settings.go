// Package bootstrap reads process configuration from the environment.
package bootstrap

import (
	"os"
	"strconv"
	"time"
)

// Settings is the process-wide configuration, read once at startup.
type Settings struct {
	Port                    string
	Host                    string
	ConfigPath              string
	SnapshotDir             string
	SnapshotInterval        time.Duration
	AdminAPIKey             string
	MaxIdempotencyEntries   int
	E2E                     bool
}

const (
	defaultSnapshotInterval      = 30 * time.Second
	defaultMaxIdempotencyEntries = 1000
)

// FromEnv reads Settings from the process environment.
func FromEnv() Settings {
	return Settings{
		Port:                  envOr("PORT", "8080"),
		Host:                  envOr("HOST", "0.0.0.0"),
		ConfigPath:            os.Getenv("CONFIG_PATH"),
		SnapshotDir:           envOr("SNAPSHOT_DIR", "./snapshots"),
		SnapshotInterval:      envDurationMsOr("SNAPSHOT_INTERVAL_MS", defaultSnapshotInterval),
		AdminAPIKey:           os.Getenv("ADMIN_API_KEY"),
		MaxIdempotencyEntries: envIntOr("GAMENG_MAX_IDEMPOTENCY_ENTRIES", defaultMaxIdempotencyEntries),
		E2E:                   os.Getenv("GAMENG_E2E") == "1",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDurationMsOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
