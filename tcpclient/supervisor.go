package tcpclient

import (
	"context"
	"time"

	lkerr "relink/internal/errors"
)

// ── Auto reconnect ───────────────────────────────────────────────────

// EnableAutoReconnect turns on the reconnect supervisor.  initial is
// floored to 200ms and max to initial.  Calling it again updates the
// delays and restarts the backoff sequence; it never starts a second
// supervisor.
func (c *Client) EnableAutoReconnect(initial, max time.Duration) {
	c.backoff.Configure(initial, max)
	c.autoReconnect.Store(true)
	c.ensureSupervisor()
}

// DisableAutoReconnect stops the supervisor.  The current connection,
// if any, stays up.  Calling it while already disabled is a no-op.
func (c *Client) DisableAutoReconnect() {
	c.supMu.Lock()
	defer c.supMu.Unlock()

	c.autoReconnect.Store(false)
	if c.supCancel != nil {
		c.supCancel()
		c.supCancel = nil
	}
}

// AutoReconnect reports whether auto-reconnect is enabled.
func (c *Client) AutoReconnect() bool { return c.autoReconnect.Load() }

// ensureSupervisor starts the supervisor if auto-reconnect is on and
// none is running.  A replaced supervisor is cancelled, and the new
// one waits for it to exit before doing anything, so two loops never
// overlap.
func (c *Client) ensureSupervisor() {
	c.supMu.Lock()
	defer c.supMu.Unlock()

	if !c.autoReconnect.Load() || c.closed.Load() {
		return
	}
	if c.supCancel != nil && !isDone(c.supDone) {
		return
	}
	if c.supCancel != nil {
		c.supCancel()
	}

	prev := c.supDone
	ctx, cancel := context.WithCancel(c.ctx)
	done := make(chan struct{})
	c.supCancel, c.supDone = cancel, done

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		c.supervise(ctx)
	}()
}

func isDone(ch chan struct{}) bool {
	if ch == nil {
		return true
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// supervise is the reconnect state machine:
//
//	idle      flag off              → poll
//	connected flag on, link up      → reset backoff, poll
//	waiting   flag on, link down    → notify, sleep(delay), dial once
//	                                   ok:   reset backoff
//	                                   fail: double delay (capped)
func (c *Client) supervise(ctx context.Context) {
	for ctx.Err() == nil {
		if !c.autoReconnect.Load() {
			if !sleep(ctx, supervisorPoll) {
				return
			}
			continue
		}

		if c.IsConnected() {
			c.backoff.Reset()
			if !sleep(ctx, supervisorPoll) {
				return
			}
			continue
		}

		if host, _ := c.Endpoint(); host == "" {
			// nothing to dial until Connect sets an endpoint
			if !sleep(ctx, supervisorPoll) {
				return
			}
			continue
		}

		delay := c.backoff.Current()
		c.metrics.ReconnectAttempt()
		c.logf("[tcp] reconnect after %d ms", delay.Milliseconds())
		c.events.reconnect.emit(delay, c.logf)

		if !sleep(ctx, delay) {
			return
		}

		if err := c.connect(ctx, false); err != nil {
			if ctx.Err() != nil || c.closed.Load() {
				return
			}
			if !lkerr.IsRetryable(err) {
				c.logf("[tcp] warning: %v does not look transient, retrying anyway", err)
			}
			c.backoff.Fail()
			continue
		}
		c.backoff.Reset()
	}
}

// sleep waits for d or until ctx is done.  It reports whether the full
// delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
