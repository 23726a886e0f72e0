package tcpclient

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	lkerr "relink/internal/errors"
	"relink/internal/session"
	"relink/util"
)

// receiver is the read loop of one connection lifetime.  A new one is
// started for every successful connect; it exits when its session is
// no longer current.
type receiver struct {
	c        *Client
	sess     *session.Session
	stopped  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	ready    chan struct{}
	done     chan struct{}
}

func newReceiver(c *Client, sess *session.Session) *receiver {
	return &receiver{
		c:      c,
		sess:   sess,
		stopCh: make(chan struct{}),
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// stop asks the loop to exit.  Callers close the session right after,
// which unblocks a pending read.
func (r *receiver) stop() {
	r.stopOnce.Do(func() {
		r.stopped.Store(true)
		close(r.stopCh)
	})
}

// start releases the loop to begin reading.  The loop goroutine runs
// from the moment the session is installed, so a teardown before start
// still finds it and joins at once.
func (r *receiver) start() { close(r.ready) }

// wait blocks until the loop has exited or d has passed, whichever
// comes first.
func (r *receiver) wait(d time.Duration) bool {
	select {
	case <-r.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (r *receiver) run() {
	defer close(r.done)

	select {
	case <-r.ready:
	case <-r.stopCh:
		return
	}

	bufp := util.GetBuf()
	defer util.PutBuf(bufp)
	buf := *bufp

	for !r.stopped.Load() {
		conn := r.c.currentConn(r.sess)
		if conn == nil {
			return
		}

		// The deadline doubles as the poll interval for the stop flag.
		// Conns that reject deadlines (SSH channels) unblock on Close.
		conn.SetReadDeadline(time.Now().Add(r.c.opts.pollInterval)) //nolint:errcheck
		n, err := conn.Read(buf)

		if n > 0 {
			if r.stopped.Load() {
				return
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			r.sess.AddIn(n)
			r.c.metrics.BytesReceived(n)
			r.c.events.data.emit(data, r.c.logf)
		}

		switch {
		case err == nil:
		case r.stopped.Load():
			// local teardown: whatever the read returned is expected
			return
		case lkerr.IsTimeout(err):
		case errors.Is(err, io.EOF):
			r.c.drop(r.sess, "server closed connection")
			return
		case lkerr.IsClosed(err):
			r.c.drop(r.sess, "connection closed")
			return
		default:
			r.c.metrics.RecordError(err.Error())
			r.c.logf("[tcp] receive error: %v", err)
			r.c.drop(r.sess, "receive failed")
			return
		}
	}
}

// currentConn returns sess's conn if sess is still the live session.
func (c *Client) currentConn(sess *session.Session) net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != sess {
		return nil
	}
	return sess.Conn
}
