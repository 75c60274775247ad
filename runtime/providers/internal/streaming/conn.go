// Package streaming is the websocket transport under the live provider session.
//
// Conn owns dialing (with jittered retry), serialized writes, a single reader
// goroutine, keepalive pings and the close handshake. Message encoding is left
// to the caller.
package streaming

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AltairaLabs/visionary/runtime/logger"
)

// Connection defaults.
const (
	DefaultDialTimeout      = 10 * time.Second
	DefaultWriteWait        = 10 * time.Second
	DefaultMaxMessageSize   = 16 * 1024 * 1024
	DefaultMaxRetries       = 3
	DefaultRetryBackoffBase = 500 * time.Millisecond
	DefaultRetryBackoffMax  = 10 * time.Second
	DefaultCloseGracePeriod = 2 * time.Second
	DefaultInboxSize        = 64
)

// jitterFactor applies +-25% to backoff delays.
const (
	jitterFactor        = 0.25
	jitterPrecision     = 1000
	jitterHalfPrecision = jitterPrecision / 2
)

var (
	// ErrNotConnected is returned by I/O on a Conn that never connected.
	ErrNotConnected = errors.New("websocket is not connected")
	// ErrClosed is returned by I/O on a closed Conn.
	ErrClosed = errors.New("websocket is closed")
)

// ConnConfig configures a Conn. Zero values take the defaults above.
type ConnConfig struct {
	URL              string
	Headers          http.Header
	DialTimeout      time.Duration
	WriteWait        time.Duration
	MaxMessageSize   int64
	MaxRetries       int
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
	CloseGracePeriod time.Duration
	InboxSize        int

	// Component labels log lines, e.g. "gemini".
	Component string
}

func (c *ConnConfig) defaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.WriteWait == 0 {
		c.WriteWait = DefaultWriteWait
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryBackoffBase == 0 {
		c.RetryBackoffBase = DefaultRetryBackoffBase
	}
	if c.RetryBackoffMax == 0 {
		c.RetryBackoffMax = DefaultRetryBackoffMax
	}
	if c.CloseGracePeriod == 0 {
		c.CloseGracePeriod = DefaultCloseGracePeriod
	}
	if c.InboxSize <= 0 {
		c.InboxSize = DefaultInboxSize
	}
	if c.Component == "" {
		c.Component = "streaming"
	}
}

type inbound struct {
	data []byte
	err  error
}

// Conn is a websocket connection with one reader goroutine and serialized writes.
type Conn struct {
	cfg ConnConfig

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	closed  bool
	closeCh chan struct{}
	inbox   chan inbound
	readers sync.WaitGroup
}

// NewConn creates an unconnected Conn.
func NewConn(cfg *ConnConfig) *Conn {
	cfg.defaults()
	return &Conn{
		cfg:     *cfg,
		closeCh: make(chan struct{}),
		inbox:   make(chan inbound, cfg.InboxSize),
	}
}

// Connect dials the endpoint once and starts the reader.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.DialTimeout,
		TLSClientConfig:  &tls.Config{MinVersion: tls.VersionTLS12},
	}

	logger.Debug("Connecting websocket", "component", c.cfg.Component, "url", logger.RedactSensitiveData(c.cfg.URL))

	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, c.cfg.Headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			logger.Warn("Websocket dial rejected", "component", c.cfg.Component, "status", resp.StatusCode)
			return fmt.Errorf("failed to connect (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to connect: %w", err)
	}

	conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn = conn
	c.readers.Add(1)
	go c.readLoop(conn)

	logger.Info("Websocket connected", "component", c.cfg.Component)
	return nil
}

// ConnectWithRetry dials with exponential backoff and jitter, up to MaxRetries attempts.
func (c *Conn) ConnectWithRetry(ctx context.Context) error {
	var lastErr error
	backoff := c.cfg.RetryBackoffBase

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.Connect(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrClosed) {
			return err
		}
		lastErr = err
		logger.Warn("Websocket connection attempt failed",
			"component", c.cfg.Component, "attempt", attempt, "max_attempts", c.cfg.MaxRetries, "error", err)

		if attempt < c.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calculateBackoff(backoff, c.cfg.RetryBackoffMax)):
			}
			backoff = min(backoff*2, c.cfg.RetryBackoffMax)
		}
	}

	return fmt.Errorf("failed to connect after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

func (c *Conn) readLoop(conn *websocket.Conn) {
	defer c.readers.Done()
	for {
		msgType, data, err := conn.ReadMessage()
		if err == nil && msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		select {
		case c.inbox <- inbound{data: data, err: err}:
		case <-c.closeCh:
			return
		}
		if err != nil {
			return
		}
	}
}

// Send JSON-encodes msg and writes it as a text frame.
func (c *Conn) Send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return c.SendRaw(data)
}

// SendRaw writes data as a text frame under the write deadline.
func (c *Conn) SendRaw(data []byte) error {
	conn, err := c.current()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Receive returns the next inbound message. A normal close from the peer is
// reported as ErrClosed.
func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	if _, err := c.current(); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closeCh:
		return nil, ErrClosed
	case in := <-c.inbox:
		if in.err != nil {
			if websocket.IsCloseError(in.err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, fmt.Errorf("%w: %w", ErrClosed, in.err)
			}
			return nil, in.err
		}
		return in.data, nil
	}
}

// StartHeartbeat pings the peer every interval until ctx ends or the Conn closes.
func (c *Conn) StartHeartbeat(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.closeCh:
				return
			case <-ticker.C:
				if !c.ping() {
					return
				}
			}
		}
	}()
}

func (c *Conn) ping() bool {
	conn, err := c.current()
	if err != nil {
		return false
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	deadline := time.Now().Add(c.cfg.WriteWait)
	if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		logger.Warn("Websocket ping failed", "component", c.cfg.Component, "error", err)
		return false
	}
	return true
}

// Close sends a close frame, closes the socket and waits for the reader to exit.
// It is safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closeCh)
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.CloseGracePeriod))
	c.writeMu.Unlock()

	err := conn.Close()
	c.readers.Wait()
	return err
}

// IsClosed reports whether Close has been called.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// IsConnected reports whether the Conn is connected and not closed.
func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closed
}

func (c *Conn) current() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return nil, ErrClosed
	case c.conn == nil:
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// calculateBackoff returns base (capped at maxDelay) with +-25% jitter.
func calculateBackoff(base, maxDelay time.Duration) time.Duration {
	delay := math.Min(float64(base), float64(maxDelay))
	n, err := rand.Int(rand.Reader, big.NewInt(jitterPrecision))
	if err != nil {
		return time.Duration(delay)
	}
	jitter := delay * jitterFactor * (float64(n.Int64())/jitterHalfPrecision - 1)
	result := math.Min(math.Max(delay+jitter, 0), float64(maxDelay))
	return time.Duration(result)
}
