package core

import (
	"errors"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"relink/config"
	lkerr "relink/internal/errors"
	"relink/internal/transport"
	"relink/util"
)

func baseConfig() *config.Config {
	cfg := config.Default()
	cfg.Host, cfg.Port = "example.com", 80
	return cfg
}

// TestBuild_Link verifies that Build produces a LinkMode carrying the
// reconnect settings.
func TestBuild_Link(t *testing.T) {
	cfg := baseConfig()
	cfg.AutoReconnect = true

	mode, err := Build(cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	lm, ok := mode.(*LinkMode)
	if !ok {
		t.Fatalf("expected *LinkMode, got %T", mode)
	}
	if !lm.AutoReconnect || lm.InitialDelay != config.DefaultInitialDelay || lm.MaxDelay != config.DefaultMaxDelay {
		t.Errorf("reconnect settings = %v %v %v", lm.AutoReconnect, lm.InitialDelay, lm.MaxDelay)
	}
	if lm.Metrics != nil {
		t.Error("metrics collector built without --metrics")
	}
	if _, ok := lm.Dialer.(*transport.TCPDialer); !ok {
		t.Errorf("dialer = %T, want *TCPDialer", lm.Dialer)
	}
}

func TestBuild_TunnelDialer(t *testing.T) {
	cfg := baseConfig()
	cfg.TunnelSpec = "ops@jump"
	if err := cfg.ApplyTunnel(); err != nil {
		t.Fatal(err)
	}

	mode, err := Build(cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := mode.(*LinkMode).Dialer.(*transport.SSHDialer); !ok {
		t.Errorf("dialer = %T, want *SSHDialer", mode.(*LinkMode).Dialer)
	}
}

func TestBuild_Metrics(t *testing.T) {
	cfg := baseConfig()
	cfg.Metrics = config.MetricsJSON

	mode, err := Build(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if mode.(*LinkMode).Metrics == nil {
		t.Error("expected a metrics collector")
	}
}

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"", "UTF-8", "utf8"} {
		enc, err := lookupEncoding(name)
		if err != nil || enc != nil {
			t.Errorf("lookupEncoding(%q) = %v, %v; want nil, nil", name, enc, err)
		}
	}

	enc, err := lookupEncoding("windows-1252")
	if err != nil {
		t.Fatal(err)
	}
	if enc != charmap.Windows1252 {
		t.Errorf("windows-1252 resolved to %v", enc)
	}

	_, err = lookupEncoding("klingon-8")
	var ce *lkerr.ConfigError
	if !errors.As(err, &ce) || ce.Field != "encoding" {
		t.Errorf("err = %v, want encoding ConfigError", err)
	}
}

func TestBuild_BadOutput(t *testing.T) {
	cfg := baseConfig()
	cfg.Output = "morse"
	if _, err := Build(cfg, nil); err == nil {
		t.Error("expected error for bad output mode")
	}
}
