package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnv_Target(t *testing.T) {
	t.Setenv("RELINK_HOST", "test.example.com")
	t.Setenv("RELINK_PORT", "8080")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.Host != "test.example.com" || cfg.Port != 8080 {
		t.Errorf("target = %s:%d", cfg.Host, cfg.Port)
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	for _, v := range []string{"1", "true", "yes", "TRUE", "Yes"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("RELINK_RECONNECT", v)
			t.Setenv("RELINK_SSH_AGENT", v)
			cfg := Default()
			LoadFromEnv(cfg)
			if !cfg.AutoReconnect || !cfg.UseSSHAgent {
				t.Errorf("reconnect=%v agent=%v", cfg.AutoReconnect, cfg.UseSSHAgent)
			}
		})
	}
}

func TestLoadFromEnv_FalseyBooleans(t *testing.T) {
	t.Setenv("RELINK_RECONNECT", "no")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.AutoReconnect {
		t.Error("AutoReconnect should stay false")
	}
}

func TestLoadFromEnv_Durations(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"500", 500 * time.Millisecond},
		{"2s", 2 * time.Second},
		{"1m30s", 90 * time.Second},
		{"garbage", DefaultInitialDelay},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("RELINK_INITIAL_DELAY", tt.value)
			cfg := Default()
			LoadFromEnv(cfg)
			if cfg.InitialDelay != tt.want {
				t.Errorf("InitialDelay = %v, want %v", cfg.InitialDelay, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_EmptyKeepsValues(t *testing.T) {
	cfg := Default()
	cfg.Host = "keep"
	LoadFromEnv(cfg)
	if cfg.Host != "keep" || cfg.MaxDelay != DefaultMaxDelay {
		t.Errorf("cfg changed without env: %+v", cfg)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("RELINK_TUNNEL=ops@jump\nRELINK_OUTPUT=hex\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RELINK_OUTPUT", "raw") // process env wins
	t.Setenv("RELINK_TUNNEL", "")
	os.Unsetenv("RELINK_TUNNEL")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.TunnelSpec != "ops@jump" {
		t.Errorf("TunnelSpec = %q", cfg.TunnelSpec)
	}
	if cfg.Output != "raw" {
		t.Errorf("Output = %q, want process env value", cfg.Output)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relink.yaml")
	doc := "host: gateway.internal\nport: 9000\nreconnect: true\ninitial_delay: 500ms\nmax_delay: 10s\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := LoadFile(cfg, path, false); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Host != "gateway.internal" || cfg.Port != 9000 || !cfg.AutoReconnect {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.InitialDelay != 500*time.Millisecond || cfg.MaxDelay != 10*time.Second {
		t.Errorf("delays = %v/%v", cfg.InitialDelay, cfg.MaxDelay)
	}
	if cfg.Timeout != DefaultConnTimeout {
		t.Errorf("absent key changed Timeout to %v", cfg.Timeout)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	cfg := Default()
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if err := LoadFile(cfg, missing, true); err != nil {
		t.Errorf("optional missing file: %v", err)
	}
	if err := LoadFile(cfg, missing, false); err == nil {
		t.Error("required missing file should fail")
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("port: [not, a, number]\n"), 0o600) //nolint:errcheck
	if err := LoadFile(Default(), path, false); err == nil {
		t.Error("malformed file should fail")
	}
}
