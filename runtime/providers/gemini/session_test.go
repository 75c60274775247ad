package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// fakeLive is a minimal Live endpoint. It answers the setup frame, forwards
// every later client frame to received, and writes whatever is put on push.
type fakeLive struct {
	srv       *httptest.Server
	apiKey    chan string
	setup     chan []byte
	received  chan []byte
	push      chan string
	skipSetup bool
}

func newFakeLive(t *testing.T, skipSetup bool) *fakeLive {
	t.Helper()
	f := &fakeLive{
		apiKey:    make(chan string, 1),
		setup:     make(chan []byte, 1),
		received:  make(chan []byte, 16),
		push:      make(chan string, 16),
		skipSetup: skipSetup,
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.apiKey <- r.Header.Get(apiKeyHeader)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		f.setup <- data
		if f.skipSetup {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"serverContent":{}}`))
		} else {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"setupComplete":{}}`))
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				f.received <- data
			}
		}()
		for {
			select {
			case <-done:
				return
			case msg := <-f.push:
				if msg == "" {
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					<-done
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeLive) url() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func TestDialer_HandshakeAndIO(t *testing.T) {
	f := newFakeLive(t, false)
	ctx := context.Background()

	s, err := NewDialer(DialConfig{URL: f.url(), APIKey: "AIza-test"}).Dial(ctx)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, StateOpen, s.State())
	assert.Equal(t, "AIza-test", <-f.apiKey)

	var setup map[string]map[string]any
	require.NoError(t, json.Unmarshal(<-f.setup, &setup))
	assert.Equal(t, "models/"+DefaultLiveModel, setup["setup"]["model"])

	require.NoError(t, s.SendRealtimeInput(ctx, Blob{MIMEType: "audio/pcm;rate=16000", Data: "AAA="}))
	assert.JSONEq(t,
		`{"realtimeInput":{"mediaChunks":[{"mimeType":"audio/pcm;rate=16000","data":"AAA="}]}}`,
		string(<-f.received))

	require.NoError(t, s.SendToolResponse(ctx, []FunctionResponse{NewFunctionResult("c1", GenerateImageTool, "ok")}))
	assert.Contains(t, string(<-f.received), `"functionResponses"`)

	f.push <- `{"serverContent":{"interrupted":true}}`
	raw, err := s.Receive(ctx)
	require.NoError(t, err)
	msg, err := DecodeServerMessage(raw)
	require.NoError(t, err)
	assert.True(t, msg.Interrupted())
}

func TestDialer_SetupRejected(t *testing.T) {
	f := newFakeLive(t, true)

	_, err := NewDialer(DialConfig{URL: f.url(), MaxRetries: 1}).Dial(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSetupRejected)
}

func TestDialer_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := NewDialer(DialConfig{URL: "ws://127.0.0.1:1/live", MaxRetries: 1}).Dial(ctx)
	require.Error(t, err)
}

func TestLiveSession_ServerClose(t *testing.T) {
	f := newFakeLive(t, false)
	ctx := context.Background()

	s, err := NewDialer(DialConfig{URL: f.url()}).Dial(ctx)
	require.NoError(t, err)
	defer s.Close()

	f.push <- ""
	_, err = s.Receive(ctx)
	require.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, StateClosed, s.State())
}

func TestLiveSession_SendAfterClose(t *testing.T) {
	f := newFakeLive(t, false)
	ctx := context.Background()

	s, err := NewDialer(DialConfig{URL: f.url()}).Dial(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, StateClosed, s.State())
	assert.ErrorIs(t, s.SendRealtimeInput(ctx, Blob{Data: "AAA="}), ErrSessionClosed)
	assert.NoError(t, s.SendToolResponse(ctx, nil))
}

func TestConnState_String(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "error", StateError.String())
	assert.Equal(t, "ConnState(9)", ConnState(9).String())
}
