package tcpclient

import (
	"time"

	"relink/internal/metrics"
	"relink/internal/transport"
)

// ── Defaults ─────────────────────────────────────────────────────────

const (
	// DefaultInitialDelay is the first reconnect delay.
	DefaultInitialDelay = 1000 * time.Millisecond

	// DefaultMaxDelay caps the reconnect delay.
	DefaultMaxDelay = 15000 * time.Millisecond

	// DefaultConnectTimeout bounds one dial attempt, and with it how
	// long Connect can block.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds one Send.
	DefaultWriteTimeout = 5 * time.Second

	// DefaultReadPollInterval is the read deadline the receive loop
	// uses to notice a stop request while the peer is silent.
	DefaultReadPollInterval = 250 * time.Millisecond

	// supervisorPoll is how often the supervisor re-checks state while
	// idle or connected.
	supervisorPoll = 200 * time.Millisecond

	// joinTimeout bounds how long Disconnect waits for the receive
	// loop to exit.
	joinTimeout = 300 * time.Millisecond
)

// LogFunc receives one diagnostic line.  It is called from whichever
// goroutine noticed the condition.
type LogFunc func(msg string)

// Option configures a [Client].
type Option func(*options)

type options struct {
	log            LogFunc
	dialer         transport.Dialer
	metrics        *metrics.Collector
	connectTimeout time.Duration
	writeTimeout   time.Duration
	pollInterval   time.Duration
}

func defaultOptions() options {
	return options{
		log:            func(string) {},
		connectTimeout: DefaultConnectTimeout,
		writeTimeout:   DefaultWriteTimeout,
		pollInterval:   DefaultReadPollInterval,
	}
}

// WithLog installs the diagnostic sink.  nil restores the no-op sink.
func WithLog(fn LogFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.log = fn
		}
	}
}

// WithDialer replaces the default direct TCP dialer, e.g. with an
// SSH-tunnelled one.
func WithDialer(d transport.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) { o.metrics = m }
}

// WithConnectTimeout bounds each connection attempt.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.connectTimeout = d
		}
	}
}

// WithWriteTimeout bounds each Send.  Zero disables the deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.writeTimeout = d
		}
	}
}

// WithReadPollInterval sets how quickly the receive loop notices a
// stop request.
func WithReadPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}
