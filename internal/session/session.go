// Package session represents one connection lifetime of the client:
// the live net.Conn plus the identity and timestamps that go with it.
//
// A Session is created by a successful dial and closed exactly once,
// no matter how many goroutines race to tear it down.
package session

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session owns a single connected net.Conn.
type Session struct {
	ID        string
	Conn      net.Conn
	Addr      string
	StartedAt time.Time

	bytesIn  atomic.Int64
	bytesOut atomic.Int64

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// New wraps conn in a Session with a fresh random ID.
func New(conn net.Conn, addr string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Conn:      conn,
		Addr:      addr,
		StartedAt: time.Now(),
	}
}

// Close closes the connection.  Only the first call has any effect;
// later calls return the first call's error.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.Conn.Close()
	})
	return s.closeErr
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool { return s.closed.Load() }

// AddIn records n received bytes.
func (s *Session) AddIn(n int) { s.bytesIn.Add(int64(n)) }

// AddOut records n sent bytes.
func (s *Session) AddOut(n int) { s.bytesOut.Add(int64(n)) }

// Traffic returns the bytes received and sent on this session.
func (s *Session) Traffic() (in, out int64) {
	return s.bytesIn.Load(), s.bytesOut.Load()
}

// Uptime returns how long the session has been (or was) open.
func (s *Session) Uptime() time.Duration {
	return time.Since(s.StartedAt)
}

// ShortID returns the first eight characters of ID for log lines.
func (s *Session) ShortID() string {
	if len(s.ID) < 8 {
		return s.ID
	}
	return s.ID[:8]
}
