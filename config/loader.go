package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables, including .env files  (this file)
//   3. Config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DotEnvFiles are loaded, when present, before the environment is read.
// Variables already set in the process environment win.
var DotEnvFiles = []string{".env.local", ".env"}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the RELINK_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  Durations accept Go
// syntax ("1.5s") or a bare number of milliseconds.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  Call it BEFORE applying CLI
// flags so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := env("HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("PORT"); v > 0 {
		cfg.Port = v
	}
	if v := envInt("LOCAL_PORT"); v > 0 {
		cfg.LocalPort = v
	}
	if v := envDuration("TIMEOUT"); v > 0 {
		cfg.Timeout = v
	}
	if v := envDuration("WRITE_TIMEOUT"); v > 0 {
		cfg.WriteTimeout = v
	}
	if envBool("NAGLE") {
		cfg.Nagle = true
	}

	// Reconnect
	if envBool("RECONNECT") {
		cfg.AutoReconnect = true
	}
	if v := envDuration("INITIAL_DELAY"); v > 0 {
		cfg.InitialDelay = v
	}
	if v := envDuration("MAX_DELAY"); v > 0 {
		cfg.MaxDelay = v
	}

	// SSH tunnel
	if v := env("TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := env("SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := env("KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if v := env("OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := env("ENCODING"); v != "" {
		cfg.Encoding = v
	}
	if v := env("METRICS"); v != "" {
		cfg.Metrics = v
	}
	if v := envInt("VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
	if v := env("CONFIG"); v != "" {
		cfg.ConfigFile = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func env(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}

func envInt(key string) int {
	n, err := strconv.Atoi(env(key))
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(env(key))
	return v == "1" || v == "true" || v == "yes"
}

func envDuration(key string) time.Duration {
	v := env(key)
	if v == "" {
		return 0
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}
