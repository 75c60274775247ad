package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	pkgerrors "github.com/AltairaLabs/visionary/pkg/errors"
	"github.com/AltairaLabs/visionary/runtime/logger"
	"github.com/AltairaLabs/visionary/runtime/providers/internal/streaming"
)

// DefaultLiveURL is the Gemini Live websocket endpoint.
const DefaultLiveURL = "wss://generativelanguage.googleapis.com/ws/" +
	"google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// Connection defaults.
const (
	DefaultSetupTimeout      = 10 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second

	liveDialTimeout = 45 * time.Second
	liveMaxRetries  = 3
	apiKeyHeader    = "x-goog-api-key"
)

var (
	// ErrSessionClosed is returned for I/O on a closed session.
	ErrSessionClosed = errors.New("session is closed")
	// ErrSetupRejected is returned when the first server frame is not setupComplete.
	ErrSetupRejected = errors.New("setup_complete not received")
)

// ConnState is the connection state of a live session.
type ConnState int

// Connection states.
const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosed
	StateError
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// DialConfig configures a Dialer.
type DialConfig struct {
	URL               string
	APIKey            string
	Live              LiveConfig
	SetupTimeout      time.Duration
	HeartbeatInterval time.Duration
	MaxRetries        int
}

// Dialer opens live sessions.
type Dialer struct {
	cfg DialConfig
}

// NewDialer creates a Dialer, filling zero fields with defaults.
func NewDialer(cfg DialConfig) *Dialer {
	if cfg.URL == "" {
		cfg.URL = DefaultLiveURL
	}
	if cfg.SetupTimeout == 0 {
		cfg.SetupTimeout = DefaultSetupTimeout
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = liveMaxRetries
	}
	if cfg.Live.Model == "" {
		cfg.Live = DefaultLiveConfig()
	}
	return &Dialer{cfg: cfg}
}

// LiveSession is an established Gemini Live connection.
type LiveSession struct {
	conn *streaming.Conn

	mu    sync.Mutex
	state ConnState

	hbCancel context.CancelFunc
}

// Dial connects, sends the setup message and waits for setupComplete.
// The returned session is open.
func (d *Dialer) Dial(ctx context.Context) (*LiveSession, error) {
	headers := http.Header{}
	headers.Set(apiKeyHeader, d.cfg.APIKey)

	conn := streaming.NewConn(&streaming.ConnConfig{
		URL:            d.cfg.URL,
		Headers:        headers,
		DialTimeout:    liveDialTimeout,
		MaxMessageSize: streaming.DefaultMaxMessageSize,
		MaxRetries:     d.cfg.MaxRetries,
		Component:      "gemini",
	})
	s := &LiveSession{conn: conn, state: StateConnecting}

	if err := conn.ConnectWithRetry(ctx); err != nil {
		s.setState(StateError)
		return nil, pkgerrors.New("gemini", "Dial", err)
	}

	setup := buildSetupMessage(d.cfg.Live)
	if logger.Enabled(ctx, slog.LevelDebug) {
		if b, err := json.Marshal(setup); err == nil {
			logger.DebugContext(ctx, "Gemini setup message", "setup", string(b))
		}
	}
	if err := s.handshake(ctx, setup, d.cfg.SetupTimeout); err != nil {
		_ = conn.Close()
		s.setState(StateError)
		return nil, pkgerrors.New("gemini", "Setup", err)
	}

	hbCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.hbCancel = cancel
	conn.StartHeartbeat(hbCtx, d.cfg.HeartbeatInterval)

	s.setState(StateOpen)
	logger.InfoContext(ctx, "Gemini live session open", "model", modelPath(d.cfg.Live.Model))
	return s, nil
}

func (s *LiveSession) handshake(ctx context.Context, setup setupMessage, timeout time.Duration) error {
	if err := s.conn.Send(setup); err != nil {
		return fmt.Errorf("failed to send setup message: %w", err)
	}

	setupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := s.conn.Receive(setupCtx)
	if err != nil {
		return fmt.Errorf("failed to receive setup response: %w", err)
	}
	msg, err := DecodeServerMessage(raw)
	if err != nil {
		return err
	}
	if msg.SetupComplete == nil {
		return ErrSetupRejected
	}
	return nil
}

// State returns the connection state.
func (s *LiveSession) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *LiveSession) setState(st ConnState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *LiveSession) send(ctx context.Context, msg any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.State() != StateOpen {
		return ErrSessionClosed
	}
	if err := s.conn.Send(msg); err != nil {
		if errors.Is(err, streaming.ErrClosed) {
			return ErrSessionClosed
		}
		s.setState(StateError)
		return err
	}
	return nil
}

// SendRealtimeInput sends one media chunk on the uplink.
func (s *LiveSession) SendRealtimeInput(ctx context.Context, media Blob) error {
	return s.send(ctx, realtimeInputMessage{RealtimeInput: realtimeInput{MediaChunks: []Blob{media}}})
}

// SendToolResponse answers one or more function calls.
func (s *LiveSession) SendToolResponse(ctx context.Context, responses []FunctionResponse) error {
	if len(responses) == 0 {
		return nil
	}
	return s.send(ctx, toolResponseMessage{ToolResponse: toolResponse{FunctionResponses: responses}})
}

// Receive returns the next raw downlink frame. A clean close from the server
// moves the session to closed and returns ErrSessionClosed.
func (s *LiveSession) Receive(ctx context.Context) ([]byte, error) {
	raw, err := s.conn.Receive(ctx)
	if err == nil {
		return raw, nil
	}
	switch {
	case ctx.Err() != nil:
		return nil, err
	case errors.Is(err, streaming.ErrClosed):
		s.setState(StateClosed)
		return nil, fmt.Errorf("%w: %w", ErrSessionClosed, err)
	default:
		s.setState(StateError)
		return nil, pkgerrors.New("gemini", "Receive", err)
	}
}

// Close closes the connection. It is safe to call more than once.
func (s *LiveSession) Close() error {
	s.mu.Lock()
	if s.hbCancel != nil {
		s.hbCancel()
		s.hbCancel = nil
	}
	if s.state != StateError {
		s.state = StateClosed
	}
	s.mu.Unlock()
	return s.conn.Close()
}
