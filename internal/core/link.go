package core

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/text/encoding"

	"relink/config"
	lkerr "relink/internal/errors"
	"relink/internal/metrics"
	"relink/internal/transport"
	"relink/tcpclient"
	"relink/util"
)

// LinkMode keeps a reconnecting TCP link to Host:Port.  Stdin is
// forwarded to the peer line by line; everything the peer sends is
// rendered to Stdout.
//
// Without auto-reconnect Run returns once the link drops.  With it,
// Run returns only when ctx is cancelled.
type LinkMode struct {
	Dialer        transport.Dialer
	Host          string
	Port          int
	ConnTimeout   time.Duration
	WriteTimeout  time.Duration
	AutoReconnect bool
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Encoding      encoding.Encoding // nil = UTF-8
	Output        util.OutputMode
	Metrics       *metrics.Collector
	MetricsFormat string
	Logger        *util.Logger

	// Stdin/Stdout/Stderr default to the process streams when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (m *LinkMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *LinkMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

func (m *LinkMode) stderr() io.Writer {
	if m.Stderr != nil {
		return m.Stderr
	}
	return os.Stderr
}

// Run connects and relays until the link is finished.
func (m *LinkMode) Run(ctx context.Context) error {
	client := tcpclient.New(
		tcpclient.WithDialer(m.Dialer),
		tcpclient.WithLog(m.Logger.Sink(util.LogVerbose)),
		tcpclient.WithMetrics(m.Metrics),
		tcpclient.WithConnectTimeout(m.ConnTimeout),
		tcpclient.WithWriteTimeout(m.WriteTimeout),
	)
	defer m.report()
	defer client.Close()

	var outMu sync.Mutex
	out := util.NewPayloadWriter(m.stdout(), m.Output)
	client.OnDataReceived(func(b []byte) {
		outMu.Lock()
		defer outMu.Unlock()
		if _, err := out.Write(b); err != nil {
			m.Logger.Warn("output: %v", err)
		}
	})
	flush := func() {
		outMu.Lock()
		defer outMu.Unlock()
		if err := out.Flush(); err != nil {
			m.Logger.Warn("output: %v", err)
		}
	}
	defer flush()

	down := make(chan struct{}, 1)
	client.OnConnected(func() {
		m.Logger.Info("connected to %s", util.FormatAddr(m.Host, m.Port))
	})
	client.OnDisconnected(func() {
		m.Logger.Info("disconnected from %s", util.FormatAddr(m.Host, m.Port))
		flush()
		select {
		case down <- struct{}{}:
		default:
		}
	})
	client.OnReconnectAttempt(func(d time.Duration) {
		m.Logger.Verbose("reconnecting in %v", d)
	})

	err := client.Connect(ctx, m.Host, m.Port)
	if err != nil && !m.AutoReconnect {
		return err
	}
	if err != nil {
		m.Logger.Warn("%v; retrying", err)
	}
	if m.AutoReconnect {
		client.EnableAutoReconnect(m.InitialDelay, m.MaxDelay)
	}

	pumpCtx, stopPump := context.WithCancel(ctx)
	defer stopPump()
	go func() {
		perr := util.Pump(pumpCtx, m.stdin(), func(b []byte) error {
			return m.send(client, b)
		}, func(err error) {
			m.Logger.Warn("send: %v", err)
		})
		if perr != nil && pumpCtx.Err() == nil && !lkerr.IsHarmless(perr) {
			m.Logger.Warn("stdin: %v", perr)
		}
	}()

	if m.AutoReconnect {
		<-ctx.Done()
		return nil
	}
	select {
	case <-ctx.Done():
	case <-down:
	}
	return nil
}

func (m *LinkMode) send(c *tcpclient.Client, b []byte) error {
	if m.Encoding != nil {
		return c.SendEncoded(string(b), m.Encoding)
	}
	return c.Send(b)
}

// report prints the collected metrics, if any were requested.
func (m *LinkMode) report() {
	if m.Metrics == nil {
		return
	}
	w := m.stderr()
	switch m.MetricsFormat {
	case config.MetricsJSON:
		io.WriteString(w, m.Metrics.JSON()+"\n") //nolint:errcheck
	default:
		m.Metrics.WritePrometheus(w)
	}
}
