package core

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"relink/config"
	lkerr "relink/internal/errors"
	"relink/internal/metrics"
	"relink/internal/transport"
	"relink/tunnel"
	"relink/util"
)

// Build constructs the Mode for cfg.  cfg must already be validated.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	output, err := util.ParseOutputMode(cfg.Output)
	if err != nil {
		return nil, err
	}
	enc, err := lookupEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	m := &LinkMode{
		Dialer:        buildDialer(cfg, logger),
		Host:          cfg.Host,
		Port:          cfg.Port,
		ConnTimeout:   cfg.Timeout,
		WriteTimeout:  cfg.WriteTimeout,
		AutoReconnect: cfg.AutoReconnect,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      cfg.MaxDelay,
		Encoding:      enc,
		Output:        output,
		MetricsFormat: cfg.Metrics,
		Logger:        logger,
	}
	if cfg.Metrics != "" {
		m.Metrics = metrics.New()
	}
	return m, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
		}, logger)
	}

	return &transport.TCPDialer{
		Timeout:   cfg.Timeout,
		LocalPort: cfg.LocalPort,
		Nagle:     cfg.Nagle,
	}
}

// lookupEncoding resolves an IANA charset name.  "" and UTF-8 map to
// nil, which the client sends unchanged.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, &lkerr.ConfigError{
			Field:   "encoding",
			Value:   name,
			Message: fmt.Sprintf("unsupported encoding: %v", err),
			Hint:    "use an IANA name such as ISO-8859-1 or windows-1252",
		}
	}
	return enc, nil
}
