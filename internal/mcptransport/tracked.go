package mcptransport

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tracked wraps a transport so that the connection it yields is closed at
// most once, no matter how many owners call Close.
type Tracked struct {
	inner  mcp.Transport
	closes atomic.Int32

	mu   sync.Mutex
	conn *trackedConn
}

// Track wraps t.
func Track(t mcp.Transport) *Tracked {
	return &Tracked{inner: t}
}

// Connect implements mcp.Transport.
func (t *Tracked) Connect(ctx context.Context) (mcp.Connection, error) {
	conn, err := t.inner.Connect(ctx)
	if err != nil {
		return nil, err
	}
	tc := &trackedConn{Connection: conn, closes: &t.closes}

	t.mu.Lock()
	t.conn = tc
	t.mu.Unlock()
	return tc, nil
}

// Close closes the connection if one was opened. It is safe to call after
// the MCP session has already closed it.
func (t *Tracked) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Connected reports whether Connect succeeded.
func (t *Tracked) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Closes returns how many times the underlying connection was closed.
func (t *Tracked) Closes() int {
	return int(t.closes.Load())
}

type trackedConn struct {
	mcp.Connection
	closes *atomic.Int32
	once   sync.Once
	err    error
}

func (c *trackedConn) Close() error {
	c.once.Do(func() {
		c.closes.Add(1)
		c.err = c.Connection.Close()
	})
	return c.err
}
