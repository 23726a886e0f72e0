package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so CLI flags, the config file and
// environment loading agree.

const (
	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultConnTimeout bounds a single connection attempt.
	DefaultConnTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds a single Send.
	DefaultWriteTimeout = 5 * time.Second

	// DefaultInitialDelay is the first reconnect delay.
	DefaultInitialDelay = 1000 * time.Millisecond

	// DefaultMaxDelay caps the reconnect delay.
	DefaultMaxDelay = 15000 * time.Millisecond

	// DefaultOutput is the output mode for received bytes.
	DefaultOutput = "auto"

	// DefaultConfigFile is read when present and --config is not given.
	DefaultConfigFile = "relink.yaml"

	// EnvPrefix prefixes every supported environment variable.
	EnvPrefix = "RELINK_"
)

// Metrics output formats.
const (
	MetricsPrometheus = "prometheus"
	MetricsJSON       = "json"
)
