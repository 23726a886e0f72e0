package tcpclient

import (
	"sync"
	"time"
)

// observers is an ordered list of handlers.  Handlers run in
// subscription order on the emitting goroutine.
type observers[T any] struct {
	mu   sync.RWMutex
	next uint64
	list []observer[T]
}

type observer[T any] struct {
	id uint64
	fn func(T)
}

// add subscribes fn and returns a func that removes it again.
func (o *observers[T]) add(fn func(T)) func() {
	o.mu.Lock()
	o.next++
	id := o.next
	o.list = append(o.list, observer[T]{id: id, fn: fn})
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { o.remove(id) })
	}
}

func (o *observers[T]) remove(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, ob := range o.list {
		if ob.id == id {
			// copy so a concurrent emit keeps its snapshot intact
			next := make([]observer[T], 0, len(o.list)-1)
			next = append(next, o.list[:i]...)
			o.list = append(next, o.list[i+1:]...)
			return
		}
	}
}

// emit calls every handler with v.  A panicking handler is reported
// through logf and does not stop the others.
func (o *observers[T]) emit(v T, logf func(string, ...interface{})) {
	o.mu.RLock()
	list := o.list
	o.mu.RUnlock()

	for _, ob := range list {
		callSafely(ob.fn, v, logf)
	}
}

func callSafely[T any](fn func(T), v T, logf func(string, ...interface{})) {
	defer func() {
		if r := recover(); r != nil {
			logf("[tcp] event handler panicked: %v", r)
		}
	}()
	fn(v)
}

// events groups the four notification streams of a Client.
type events struct {
	connected    observers[struct{}]
	disconnected observers[struct{}]
	data         observers[[]byte]
	reconnect    observers[time.Duration]
}

// ── Subscriptions ────────────────────────────────────────────────────

// OnConnected registers fn to run after every successful connect.
// The returned func unsubscribes.
func (c *Client) OnConnected(fn func()) func() {
	return c.events.connected.add(func(struct{}) { fn() })
}

// OnDisconnected registers fn to run after a live connection is torn
// down, whether by Disconnect, a peer close, or an I/O error.
func (c *Client) OnDisconnected(fn func()) func() {
	return c.events.disconnected.add(func(struct{}) { fn() })
}

// OnDataReceived registers fn to receive every inbound chunk.  Each
// call gets a freshly allocated slice.  fn runs on the receive loop,
// so a slow handler delays further reads.
func (c *Client) OnDataReceived(fn func([]byte)) func() {
	return c.events.data.add(fn)
}

// OnReconnectAttempt registers fn to run before each supervisor retry
// with the delay about to be waited.
func (c *Client) OnReconnectAttempt(fn func(delay time.Duration)) func() {
	return c.events.reconnect.add(fn)
}
