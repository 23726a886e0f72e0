// Package tcpclient is a resilient point-to-point TCP client.
//
// A Client owns one outbound connection, reads it on a background
// receive loop, and, when auto-reconnect is enabled, runs a supervisor
// that redials with exponential backoff whenever the link drops.
// Payloads are opaque bytes; no framing is imposed.
//
// Callers observe the link only through return values and the
// OnConnected / OnDisconnected / OnDataReceived / OnReconnectAttempt
// notifications.  I/O faults inside the background goroutines are
// handled locally and never propagate.
package tcpclient

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding"

	lkerr "relink/internal/errors"
	"relink/internal/metrics"
	"relink/internal/retry"
	"relink/internal/session"
	"relink/internal/transport"
	"relink/util"
)

// Client is a single reconnecting TCP link.  All methods are safe for
// concurrent use.
type Client struct {
	id      string
	opts    options
	dialer  transport.Dialer
	metrics *metrics.Collector
	events  events

	// mu guards the connection state.  It is held only while swapping
	// or closing handles, never across a blocking read or write.
	mu        sync.Mutex
	sess      *session.Session
	recv      *receiver
	host      string
	port      int
	connected atomic.Bool

	// connectMu serialises dial attempts from the caller and the
	// supervisor so at most one socket is ever being opened.
	connectMu sync.Mutex
	writeMu   sync.Mutex

	autoReconnect atomic.Bool
	backoff       *retry.Backoff
	supMu         sync.Mutex
	supCancel     context.CancelFunc
	supDone       chan struct{}

	closed atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a disconnected Client.
func New(opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Client{
		id:      uuid.NewString(),
		opts:    o,
		dialer:  o.dialer,
		metrics: o.metrics,
		backoff: retry.NewBackoff(DefaultInitialDelay, DefaultMaxDelay),
	}
	if c.dialer == nil {
		c.dialer = &transport.TCPDialer{Timeout: o.connectTimeout}
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// ID returns the client's random instance ID.
func (c *Client) ID() string { return c.id }

// IsConnected reports whether a live connection exists right now.
func (c *Client) IsConnected() bool { return c.connected.Load() }

// Endpoint returns the host and port set by the last Connect.
func (c *Client) Endpoint() (string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.host, c.port
}

func (c *Client) logf(format string, args ...interface{}) {
	c.opts.log(fmt.Sprintf(format, args...))
}

// ── Connect / Disconnect ─────────────────────────────────────────────

// Connect stores host:port as the endpoint and makes one synchronous
// connection attempt, bounded by the connect timeout.  Any previous
// connection is torn down first.  On success the connected
// notification fires and the receive loop starts.  Connect may be
// called again after a failure or after Disconnect.
func (c *Client) Connect(ctx context.Context, host string, port int) error {
	if c.closed.Load() {
		return lkerr.ErrClosed
	}
	c.mu.Lock()
	c.host, c.port = host, port
	c.mu.Unlock()
	return c.connect(ctx, true)
}

// connect dials the stored endpoint.  It is the one path both Connect
// and the supervisor use.  With replace unset, an already live
// connection is kept and counts as success.
func (c *Client) connect(ctx context.Context, replace bool) error {
	sess, rc, replaced, err := c.dial(ctx, replace)
	if replaced != nil {
		replaced.wait(joinTimeout)
		c.metrics.Disconnected()
		c.events.disconnected.emit(struct{}{}, c.logf)
	}
	if err != nil || sess == nil {
		return err
	}

	go rc.run()
	if c.closed.Load() {
		// Close raced the dial; its teardown stops rc before it reads
		return lkerr.ErrClosed
	}

	c.metrics.Connected()
	c.logf("[tcp] connected: %s (session %s)", sess.Addr, sess.ShortID())
	c.events.connected.emit(struct{}{}, c.logf)
	rc.start()
	return nil
}

// dial performs the attempt under connectMu.  It returns the receiver
// of a connection it had to replace so the caller can report that
// teardown outside the lock.
func (c *Client) dial(ctx context.Context, replace bool) (*session.Session, *receiver, *receiver, error) {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	if c.closed.Load() {
		return nil, nil, nil, lkerr.ErrClosed
	}
	if !replace && c.connected.Load() {
		return nil, nil, nil, nil
	}

	replaced, _ := c.detach(nil)

	host, port := c.Endpoint()
	if host == "" {
		return nil, nil, replaced, lkerr.ErrNoEndpoint
	}
	addr := util.FormatAddr(host, port)

	dctx, cancel := context.WithTimeout(ctx, c.opts.connectTimeout)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	conn, err := c.dialer.Dial(dctx, "tcp", addr)
	if err != nil {
		c.metrics.ConnectFailed()
		c.logf("[tcp] connect failed: %s: %v", addr, err)
		return nil, nil, replaced, lkerr.Wrap("dial", addr, err)
	}

	sess := session.New(conn, addr)
	rc := newReceiver(c, sess)

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		sess.Close()
		return nil, nil, replaced, lkerr.ErrClosed
	}
	c.sess, c.recv = sess, rc
	c.connected.Store(true)
	c.mu.Unlock()

	return sess, rc, replaced, nil
}

// detach tears down sess if it is still the current session, or the
// current session whatever it is when sess is nil.  The handle is
// closed before the connected flag drops, all under mu.  It returns
// the stopped receiver and whether anything was torn down.
func (c *Client) detach(sess *session.Session) (*receiver, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil || (sess != nil && c.sess != sess) {
		return nil, false
	}
	rc := c.recv
	rc.stop()
	c.sess.Close() //nolint:errcheck
	c.sess, c.recv = nil, nil
	c.connected.Store(false)
	return rc, true
}

// drop is the failure path shared by the receive loop and Send: tear
// down sess, notify, and let the supervisor take over.
func (c *Client) drop(sess *session.Session, reason string) {
	if _, ok := c.detach(sess); !ok {
		return
	}
	in, out := sess.Traffic()
	c.logf("[tcp] %s: %s (session %s, up %s, in %d B, out %d B)",
		reason, sess.Addr, sess.ShortID(), sess.Uptime().Truncate(time.Millisecond), in, out)
	c.metrics.Disconnected()
	c.events.disconnected.emit(struct{}{}, c.logf)
	c.ensureSupervisor()
}

// Disconnect closes the current connection, waits briefly for the
// receive loop to exit, and fires the disconnected notification.  No
// data notification from the old connection fires after Disconnect
// returns, unless a data handler outlives the join timeout.  With
// auto-reconnect enabled the supervisor starts redialing.
func (c *Client) Disconnect() {
	c.logf("[tcp] disconnect called")

	if rc, ok := c.detach(nil); ok {
		rc.wait(joinTimeout)
		c.metrics.Disconnected()
		c.events.disconnected.emit(struct{}{}, c.logf)
	}
	c.ensureSupervisor()
}

// ── Send ─────────────────────────────────────────────────────────────

// Send writes data to the peer.  It never queues: when disconnected it
// nudges the supervisor and fails at once with ErrNotConnected.  A
// write failure drops the connection and returns the error; the
// payload is not resent.
func (c *Client) Send(data []byte) error {
	if c.closed.Load() {
		return lkerr.ErrClosed
	}

	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()

	if sess == nil {
		c.logf("[tcp] not connected, will trigger reconnect")
		c.metrics.SendFailed()
		c.ensureSupervisor()
		return lkerr.ErrNotConnected
	}

	c.writeMu.Lock()
	if c.opts.writeTimeout > 0 {
		sess.Conn.SetWriteDeadline(time.Now().Add(c.opts.writeTimeout)) //nolint:errcheck
	}
	n, err := sess.Conn.Write(data)
	c.writeMu.Unlock()

	sess.AddOut(n)
	c.metrics.BytesSent(n)

	if err != nil {
		c.metrics.SendFailed()
		if sess.Closed() && lkerr.IsClosed(err) {
			// torn down under us by Disconnect or the receive loop
			return lkerr.ErrNotConnected
		}
		c.metrics.RecordError(err.Error())
		c.logf("[tcp] send error: %v", err)
		c.drop(sess, "send failed")
		return lkerr.Wrap("write", sess.Addr, err)
	}
	return nil
}

// SendString sends s as UTF-8.
func (c *Client) SendString(s string) error {
	return c.Send([]byte(s))
}

// SendEncoded encodes s with enc and sends the result.  Characters
// enc cannot represent are replaced with its substitute byte.  A nil
// enc means UTF-8.
func (c *Client) SendEncoded(s string, enc encoding.Encoding) error {
	if enc == nil {
		return c.SendString(s)
	}
	b, err := encoding.ReplaceUnsupported(enc.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return c.Send(b)
}

// ── Close ────────────────────────────────────────────────────────────

// Close disables auto-reconnect, tears down the connection, and waits
// for both background goroutines to exit.  It does not fire the
// disconnected notification.  Close is idempotent.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.logf("[tcp] closing client %s", c.id)

	c.supMu.Lock()
	c.autoReconnect.Store(false)
	done := c.supDone
	if c.supCancel != nil {
		c.supCancel()
		c.supCancel = nil
	}
	c.supMu.Unlock()

	c.cancel()

	if rc, ok := c.detach(nil); ok {
		rc.wait(joinTimeout)
		c.metrics.Disconnected()
	}

	if done != nil {
		select {
		case <-done:
		case <-time.After(c.opts.connectTimeout + joinTimeout):
			c.logf("[tcp] supervisor did not exit in time")
		}
	}
	return c.dialer.Close()
}
