package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	lkerr "relink/internal/errors"
)

// ── ParseTunnelSpec ──────────────────────────────────────────────────

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"full", "admin@bastion.example.com:2222", "admin", "bastion.example.com", 2222, false},
		{"no port", "root@gateway", "root", "gateway", 22, false},
		{"no user", "jump-host:2200", "", "jump-host", 2200, false},
		{"host only", "gateway.local", "", "gateway.local", 22, false},
		{"bad port", "user@host:999999", "", "", 0, true},
		{"empty", "", "", "", 0, true},
		{"colon only", ":", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, host, port, err := ParseTunnelSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)",
					user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestApplyTunnel(t *testing.T) {
	cfg := Default()
	cfg.TunnelSpec = "ops@jump:2022"
	if err := cfg.ApplyTunnel(); err != nil {
		t.Fatal(err)
	}
	if !cfg.TunnelEnabled || cfg.TunnelUser != "ops" || cfg.TunnelHost != "jump" || cfg.TunnelPort != 2022 {
		t.Errorf("tunnel = %+v", cfg)
	}

	cfg.TunnelSpec = "bad@host:x"
	err := cfg.ApplyTunnel()
	var ce *lkerr.ConfigError
	if !errors.As(err, &ce) || ce.Field != "tunnel" {
		t.Errorf("err = %v, want tunnel ConfigError", err)
	}
}

func TestSetTarget(t *testing.T) {
	cfg := Default()
	if err := cfg.SetTarget("example.com", "8080"); err != nil {
		t.Fatal(err)
	}
	if cfg.Host != "example.com" || cfg.Port != 8080 {
		t.Errorf("target = %s:%d", cfg.Host, cfg.Port)
	}
	if err := cfg.SetTarget("example.com", "http"); err == nil {
		t.Error("non-numeric port should fail")
	}
}

// ── Defaults ─────────────────────────────────────────────────────────

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.InitialDelay != time.Second || cfg.MaxDelay != 15*time.Second {
		t.Errorf("delays = %v/%v", cfg.InitialDelay, cfg.MaxDelay)
	}
	if cfg.Timeout != DefaultConnTimeout || cfg.Output != "auto" {
		t.Errorf("defaults = %+v", cfg)
	}
}

// ── Validate ─────────────────────────────────────────────────────────

func validConfig() *Config {
	cfg := Default()
	cfg.Host, cfg.Port = "127.0.0.1", 9000
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	cfg.AutoReconnect = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
		wantHint  bool
	}{
		{"no host", func(c *Config) { c.Host = "" }, "host", true},
		{"port zero", func(c *Config) { c.Port = 0 }, "port", false},
		{"port high", func(c *Config) { c.Port = 70000 }, "port", false},
		{"local port", func(c *Config) { c.LocalPort = -1 }, "local-port", false},
		{"timeout", func(c *Config) { c.Timeout = 0 }, "timeout", false},
		{"write timeout", func(c *Config) { c.WriteTimeout = -time.Second }, "write-timeout", false},
		{"initial delay", func(c *Config) { c.AutoReconnect = true; c.InitialDelay = 0 }, "initial-delay", true},
		{"max below initial", func(c *Config) {
			c.AutoReconnect = true
			c.InitialDelay, c.MaxDelay = 2*time.Second, time.Second
		}, "max-delay", false},
		{"output", func(c *Config) { c.Output = "base64" }, "output", true},
		{"metrics", func(c *Config) { c.Metrics = "statsd" }, "metrics", true},
		{"password without tunnel", func(c *Config) { c.SSHPassword = true }, "ssh-password", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			var ce *lkerr.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want *ConfigError", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ce.Field, tt.wantField)
			}
			if got := strings.Contains(err.Error(), "hint:"); got != tt.wantHint {
				t.Errorf("hint present = %v, want %v (%q)", got, tt.wantHint, err.Error())
			}
		})
	}
}

// Delays are only checked when reconnecting.
func TestValidate_DelaysIgnoredWithoutReconnect(t *testing.T) {
	cfg := validConfig()
	cfg.InitialDelay, cfg.MaxDelay = 0, 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
