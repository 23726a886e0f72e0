// Package metrics tracks link statistics for a relink client: connect
// and drop counts, reconnect attempts, and traffic volume.
//
// Counters live in a private VictoriaMetrics set so they can be
// exported in Prometheus text format.  A nil *Collector is a valid
// no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
)

// Collector tracks runtime metrics for one client.
type Collector struct {
	set *vm.Set

	connected         atomic.Bool
	connects          *vm.Counter
	disconnects       *vm.Counter
	connectFailures   *vm.Counter
	reconnectAttempts *vm.Counter
	bytesIn           *vm.Counter
	bytesOut          *vm.Counter
	sendFailures      *vm.Counter
	errorsTotal       *vm.Counter

	mu            sync.RWMutex
	startTime     time.Time
	lastConnected time.Time
	lastError     time.Time
	lastErrorMsg  string
}

// New creates a collector with the start time set to now.
func New() *Collector {
	c := &Collector{set: vm.NewSet(), startTime: time.Now()}
	c.connects = c.set.NewCounter("relink_connects_total")
	c.disconnects = c.set.NewCounter("relink_disconnects_total")
	c.connectFailures = c.set.NewCounter("relink_connect_failures_total")
	c.reconnectAttempts = c.set.NewCounter("relink_reconnect_attempts_total")
	c.bytesIn = c.set.NewCounter("relink_bytes_received_total")
	c.bytesOut = c.set.NewCounter("relink_bytes_sent_total")
	c.sendFailures = c.set.NewCounter("relink_send_failures_total")
	c.errorsTotal = c.set.NewCounter("relink_errors_total")
	c.set.NewGauge("relink_connected", func() float64 {
		if c.connected.Load() {
			return 1
		}
		return 0
	})
	c.set.NewGauge("relink_uptime_seconds", func() float64 {
		return time.Since(c.startTime).Seconds()
	})
	return c
}

// ── Link metrics ─────────────────────────────────────────────────────

// Connected records a successful connect.
func (c *Collector) Connected() {
	if c == nil {
		return
	}
	c.connects.Inc()
	c.connected.Store(true)
	c.mu.Lock()
	c.lastConnected = time.Now()
	c.mu.Unlock()
}

// Disconnected records a torn-down connection.
func (c *Collector) Disconnected() {
	if c == nil {
		return
	}
	c.disconnects.Inc()
	c.connected.Store(false)
}

// ConnectFailed records a failed connect attempt.
func (c *Collector) ConnectFailed() {
	if c == nil {
		return
	}
	c.connectFailures.Inc()
}

// ReconnectAttempt records one supervisor retry.
func (c *Collector) ReconnectAttempt() {
	if c == nil {
		return
	}
	c.reconnectAttempts.Inc()
}

// Connects returns the lifetime number of successful connects.
func (c *Collector) Connects() int64 {
	if c == nil {
		return 0
	}
	return int64(c.connects.Get())
}

// Disconnects returns the lifetime number of dropped connections.
func (c *Collector) Disconnects() int64 {
	if c == nil {
		return 0
	}
	return int64(c.disconnects.Get())
}

// ReconnectAttempts returns the total number of supervisor retries.
func (c *Collector) ReconnectAttempts() int64 {
	if c == nil {
		return 0
	}
	return int64(c.reconnectAttempts.Get())
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the network.
func (c *Collector) BytesReceived(n int) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// SendFailed records a Send that returned an error.
func (c *Collector) SendFailed() {
	if c == nil {
		return
	}
	c.sendFailures.Inc()
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return int64(c.bytesIn.Get())
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return int64(c.bytesOut.Get())
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Inc()
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return int64(c.errorsTotal.Get())
}

// ── Export ───────────────────────────────────────────────────────────

// WritePrometheus writes every metric in Prometheus text format.
func (c *Collector) WritePrometheus(w io.Writer) {
	if c == nil {
		return
	}
	c.set.WritePrometheus(w)
}

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string `json:"uptime"`
	Connected         bool   `json:"connected"`
	Connects          int64  `json:"connects"`
	Disconnects       int64  `json:"disconnects"`
	ConnectFailures   int64  `json:"connect_failures"`
	ReconnectAttempts int64  `json:"reconnect_attempts"`
	BytesIn           int64  `json:"bytes_in"`
	BytesOut          int64  `json:"bytes_out"`
	SendFailures      int64  `json:"send_failures"`
	ErrorsTotal       int64  `json:"errors_total"`
	LastConnected     string `json:"last_connected,omitempty"`
	LastError         string `json:"last_error,omitempty"`
	LastErrorMessage  string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		Connected:         c.connected.Load(),
		Connects:          int64(c.connects.Get()),
		Disconnects:       int64(c.disconnects.Get()),
		ConnectFailures:   int64(c.connectFailures.Get()),
		ReconnectAttempts: int64(c.reconnectAttempts.Get()),
		BytesIn:           int64(c.bytesIn.Get()),
		BytesOut:          int64(c.bytesOut.Get()),
		SendFailures:      int64(c.sendFailures.Get()),
		ErrorsTotal:       int64(c.errorsTotal.Get()),
	}
	if !c.lastConnected.IsZero() {
		s.LastConnected = c.lastConnected.Format(time.RFC3339)
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
