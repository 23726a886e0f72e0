// Package config defines the runtime configuration for relink and
// provides helpers for parsing tunnel specifications.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	lkerr "relink/internal/errors"
	"relink/util"
)

// Config holds every tuneable for a single relink session.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	LocalPort    int           `yaml:"local_port"`
	Timeout      time.Duration `yaml:"timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Nagle        bool          `yaml:"nagle"`

	// ── Reconnect ────────────────────────────────────────────────────
	AutoReconnect bool          `yaml:"reconnect"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string `yaml:"tunnel"` // raw user@host[:port] from -T
	TunnelEnabled  bool   `yaml:"-"`
	TunnelUser     string `yaml:"-"`
	TunnelHost     string `yaml:"-"`
	TunnelPort     int    `yaml:"-"`
	SSHKeyPath     string `yaml:"ssh_key"`
	SSHPassword    bool   `yaml:"ssh_password"`
	UseSSHAgent    bool   `yaml:"ssh_agent"`
	StrictHostKey  bool   `yaml:"strict_hostkey"`
	KnownHostsPath string `yaml:"known_hosts"`

	// ── Output ───────────────────────────────────────────────────────
	Output   string `yaml:"output"`   // raw | hex | auto
	Encoding string `yaml:"encoding"` // IANA name for outgoing text
	Metrics  string `yaml:"metrics"`  // "", prometheus, json
	Verbose  int    `yaml:"verbose"`

	ConfigFile string `yaml:"-"`
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Timeout:      DefaultConnTimeout,
		WriteTimeout: DefaultWriteTimeout,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		Output:       DefaultOutput,
	}
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q: expected [user@]host[:port]", spec)
	}
	user, host, port = m[1], m[2], DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ApplyTunnel parses TunnelSpec into the Tunnel* fields.  An empty
// spec disables the tunnel.
func (c *Config) ApplyTunnel() error {
	if c.TunnelSpec == "" {
		c.TunnelEnabled = false
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &lkerr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: err.Error(),
			Hint:    "use -T user@host[:port]",
		}
	}
	c.TunnelEnabled = true
	c.TunnelUser, c.TunnelHost, c.TunnelPort = user, host, port
	return nil
}

// SetTarget fills Host and Port from positional arguments.
func (c *Config) SetTarget(host, port string) error {
	p, err := util.ParsePort(port)
	if err != nil {
		return &lkerr.ConfigError{Field: "port", Value: port, Message: err.Error()}
	}
	c.Host, c.Port = host, p
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Every failure is a *errors.ConfigError.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &lkerr.ConfigError{
			Field:   "host",
			Message: "hostname is required",
			Hint:    "usage: relink [flags] host port",
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &lkerr.ConfigError{Field: "port", Value: c.Port, Message: "port must be 1-65535"}
	}
	if c.LocalPort < 0 || c.LocalPort > 65535 {
		return &lkerr.ConfigError{Field: "local-port", Value: c.LocalPort, Message: "port must be 0-65535"}
	}
	if c.Timeout <= 0 {
		return &lkerr.ConfigError{Field: "timeout", Value: c.Timeout, Message: "must be positive"}
	}
	if c.WriteTimeout < 0 {
		return &lkerr.ConfigError{Field: "write-timeout", Value: c.WriteTimeout, Message: "must not be negative"}
	}
	if c.AutoReconnect {
		if c.InitialDelay <= 0 {
			return &lkerr.ConfigError{
				Field:   "initial-delay",
				Value:   c.InitialDelay,
				Message: "must be positive",
				Hint:    "values below 200ms are raised to 200ms",
			}
		}
		if c.MaxDelay < c.InitialDelay {
			return &lkerr.ConfigError{
				Field:   "max-delay",
				Value:   c.MaxDelay,
				Message: fmt.Sprintf("must be at least --initial-delay (%v)", c.InitialDelay),
			}
		}
	}
	if _, err := util.ParseOutputMode(c.Output); err != nil {
		return &lkerr.ConfigError{Field: "output", Value: c.Output, Message: err.Error(), Hint: "one of raw, hex, auto"}
	}
	switch c.Metrics {
	case "", MetricsPrometheus, MetricsJSON:
	default:
		return &lkerr.ConfigError{Field: "metrics", Value: c.Metrics, Message: "unknown format", Hint: "prometheus or json"}
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return &lkerr.ConfigError{Field: "tunnel", Value: c.TunnelSpec, Message: "tunnel host is required"}
	}
	if c.SSHPassword && !c.TunnelEnabled {
		return &lkerr.ConfigError{Field: "ssh-password", Message: "only meaningful with -T", Hint: "add -T user@host"}
	}
	return nil
}
