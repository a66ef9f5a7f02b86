// Package transport drives a single outbound TCP connection to a mining
// pool as a readiness-style event loop: the caller registers callbacks for
// readable, writable, error and idle ticks, and the loop owns the socket
// exclusively for its lifetime.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// DefaultTick is the readiness-poll interval used when no WithTick option
// is supplied. It sits in the 1-10ms band so the loop gets frequent idle
// ticks to drain a caller's command channel.
const DefaultTick = 3 * time.Millisecond

// ReadBufferSize is the size of the scratch buffer used for each read.
const ReadBufferSize = 16 * 1024

// Sender is the capability handed to every callback: enqueue bytes for
// the next writable tick, or close the connection. Callbacks never see
// the raw net.Conn, so framing/protocol layers cannot bypass the send
// buffer or the shutdown sequence.
type Sender interface {
	Send(p []byte)
	Close() error
}

// Callbacks are invoked from the single goroutine that owns the socket.
type Callbacks struct {
	// OnReadable is invoked with newly received bytes. A zero-length
	// slice is never delivered here; peer-closed is signaled by Run
	// returning nil.
	OnReadable func(data []byte, s Sender)
	// OnWritable is invoked once per tick just before the flush attempt,
	// whether or not the pending buffer is empty, so the layer above can
	// top it up.
	OnWritable func(s Sender)
	// OnError is invoked when a read fails for a reason other than a
	// plain poll timeout. The loop continues; the layer decides whether
	// to Close. Write failures do not reach OnError: flush logs them and
	// keeps the unsent bytes buffered for the next tick.
	OnError func(text string, s Sender)
	// OnIdle fires once per tick when nothing else fired, giving the
	// layer above a chance to service an inbound command channel.
	OnIdle func(s Sender)
}

// Option configures a Conn before it starts dialing.
type Option func(*Conn)

// WithTick overrides the default readiness-poll interval.
func WithTick(d time.Duration) Option {
	return func(c *Conn) { c.tick = d }
}

// WithProxy routes the dial through a SOCKS5 (or other) proxy.Dialer
// instead of dialing the pool directly. Pools are commonly reached over
// Tor for operator privacy; this mirrors that use case without making it
// mandatory.
func WithProxy(d proxy.Dialer) Option {
	return func(c *Conn) { c.dialer = d }
}

// WithLogger attaches a structured logger, tagged component=transport;
// logrus's standard logger is used when none is supplied.
func WithLogger(entry *logrus.Entry) Option {
	return func(c *Conn) { c.log = entry.WithField("component", "transport") }
}

// Conn owns one outbound TCP connection to a pool.
type Conn struct {
	hostname string
	port     int
	tick     time.Duration
	dialer   proxy.Dialer
	log      *logrus.Entry

	conn net.Conn

	mu         sync.Mutex
	sendBuf    []byte
	closed     bool
	closedOnce sync.Once
}

// Dial opens the outbound TCP connection. The connection is not placed
// into its event loop until Run is called.
func Dial(ctx context.Context, hostname string, port int, opts ...Option) (*Conn, error) {
	c := &Conn{
		hostname: hostname,
		port:     port,
		tick:     DefaultTick,
		dialer:   proxy.Direct,
		log:      logrus.NewEntry(logrus.StandardLogger()).WithField("component", "transport"),
	}
	for _, opt := range opts {
		opt(c)
	}

	addr := fmt.Sprintf("%s:%d", hostname, port)

	var conn net.Conn
	var err error
	if dctx, ok := c.dialer.(proxy.ContextDialer); ok {
		conn, err = dctx.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = c.dialer.Dial("tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	c.conn = conn
	c.log = c.log.WithField("remote", addr)
	c.log.Info("connected to pool")
	return c, nil
}

// Send enqueues bytes to be flushed on the next writable tick. Safe to
// call from the owning goroutine only (callbacks run there).
func (c *Conn) Send(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.sendBuf = append(c.sendBuf, p...)
}

// Close performs a half-close (shutting down writes) followed by a full
// close. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closedOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		if tc, ok := c.conn.(*net.TCPConn); ok {
			_ = tc.CloseWrite()
		}
		err = c.conn.Close()
		c.log.Info("connection closed")
	})
	return err
}

// Run drives the readiness loop until the peer closes the connection, a
// fatal transport error occurs, or the context is cancelled. It returns
// nil on a clean peer-initiated close.
func (c *Conn) Run(ctx context.Context, cb Callbacks) error {
	buf := make([]byte, ReadBufferSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := c.conn.SetReadDeadline(time.Now().Add(c.tick)); err != nil {
			return fmt.Errorf("transport: set read deadline: %w", err)
		}

		n, err := c.conn.Read(buf)
		switch {
		case err == nil && n == 0:
			// Zero-length, no-error reads don't happen on net.Conn in
			// practice, but treat them the same as EOF defensively.
			c.log.Info("peer closed connection")
			return nil
		case err == nil:
			cb.OnReadable(append([]byte(nil), buf[:n]...), c)
		case isTimeout(err):
			if cb.OnIdle != nil {
				cb.OnIdle(c)
			}
		case errors.Is(err, io.EOF):
			c.log.Info("peer closed connection")
			return nil
		default:
			if cb.OnError != nil {
				cb.OnError(err.Error(), c)
			}
		}

		c.flush(cb.OnWritable)
	}
}

// flush attempts to drain the pending send buffer within one tick's
// write deadline, preserving any unsent remainder for the next tick.
func (c *Conn) flush(onWritable func(Sender)) {
	if onWritable != nil {
		onWritable(c)
	}

	c.mu.Lock()
	pending := c.sendBuf
	c.mu.Unlock()
	if len(pending) == 0 {
		return
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.tick)); err != nil {
		return
	}
	n, err := c.conn.Write(pending)

	c.mu.Lock()
	// More may have been queued by onWritable/Send while we were
	// writing; only drop the prefix we actually sent.
	if n > 0 && n <= len(c.sendBuf) {
		c.sendBuf = c.sendBuf[n:]
	}
	c.mu.Unlock()

	if err != nil && !isTimeout(err) {
		c.log.WithError(err).Warn("write error")
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
