// Package streamconn provides a reconnecting WebSocket transport used by
// streaming STT/TTS vendor clients, grounded on the WebSocket dial/read-loop
// shape in tts.CartesiaService.SynthesizeStream and generalized with
// automatic reconnection and exponential backoff.
package streamconn

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lattice-voice/callcore/logger"
)

// Dialer opens one underlying WebSocket connection. Implementations close
// over vendor-specific URL construction and headers.
type Dialer func(ctx context.Context) (*websocket.Conn, error)

// Config parameterizes reconnection behavior.
type Config struct {
	MaxReconnections int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
}

// DefaultConfig returns sane reconnection defaults.
func DefaultConfig() Config {
	return Config{
		MaxReconnections: 5,
		BaseDelay:        500 * time.Millisecond,
		MaxDelay:         10 * time.Second,
	}
}

// Connection manages one logical streaming session across possibly many
// underlying WebSocket connections, reconnecting transparently on read
// failure up to Config.MaxReconnections times.
type Connection struct {
	dial   Dialer
	cfg    Config
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// Open dials the first underlying connection.
func Open(ctx context.Context, dial Dialer, cfg Config) (*Connection, error) {
	conn, err := dial(ctx)
	if err != nil {
		return nil, err
	}
	return &Connection{dial: dial, cfg: cfg, conn: conn}, nil
}

// WriteJSON writes a JSON message to the current underlying connection.
func (c *Connection) WriteJSON(v interface{}) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return websocket.ErrCloseSent
	}
	return conn.WriteJSON(v)
}

// ReadLoop reads frames from the underlying connection, decoding each with
// decode, until the context is canceled, Close is called, or reconnection
// is exhausted. onMessage is invoked for each successfully decoded frame.
// onError is invoked (non-fatally) for decode errors that don't warrant a
// reconnect.
func (c *Connection) ReadLoop(ctx context.Context, readOne func(conn *websocket.Conn) error) error {
	attempt := 0
	for {
		err := readOne(c.currentConn())
		if err == nil {
			attempt = 0
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.isClosed() {
			return nil
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			return nil
		}

		attempt++
		if attempt > c.cfg.MaxReconnections {
			return err
		}

		delay := backoffDelay(c.cfg, attempt)
		logger.Warn("streamconn: connection lost, reconnecting", "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		newConn, dialErr := c.dial(ctx)
		if dialErr != nil {
			continue
		}
		c.swap(newConn)
	}
}

func (c *Connection) currentConn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Connection) swap(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close terminates the session permanently; ReadLoop returns after the next
// failed read.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func backoffDelay(cfg Config, attempt int) time.Duration {
	base := cfg.BaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(float64(delay) * jitter)
}

// DialWithHeaders is a small helper for building a Dialer around
// websocket.DefaultDialer, matching the teacher's gorilla/websocket dial
// shape.
func DialWithHeaders(url string, headers http.Header) Dialer {
	return func(ctx context.Context) (*websocket.Conn, error) {
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, headers)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}
