package live

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/visionary/runtime/audio"
	"github.com/AltairaLabs/visionary/runtime/playback"
	"github.com/AltairaLabs/visionary/runtime/providers/gemini"
)

func audioPart(data string) gemini.Part {
	return gemini.Part{InlineData: &gemini.Blob{MIMEType: "audio/pcm;rate=24000", Data: data}}
}

func encode(t *testing.T, msg gemini.ServerMessage) []byte {
	t.Helper()
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	return raw
}

func TestRouterDispatch(t *testing.T) {
	tests := []struct {
		name        string
		msg         gemini.ServerMessage
		wantChunks  []string
		wantCalls   int
		wantFlushes int
	}{
		{
			name: "audio parts in order",
			msg: gemini.ServerMessage{ServerContent: &gemini.ServerContent{
				ModelTurn: &gemini.ModelTurn{Parts: []gemini.Part{audioPart("one"), {Text: "hi"}, audioPart("two")}},
			}},
			wantChunks: []string{"one", "two"},
		},
		{
			name: "tool call",
			msg: gemini.ServerMessage{ToolCall: &gemini.ToolCallMsg{FunctionCalls: []gemini.FunctionCall{
				{ID: "c1", Name: gemini.GenerateImageTool, Args: map[string]any{"prompt": "a red fox"}},
				{ID: "c2", Name: "lookup"},
			}}},
			wantCalls: 2,
		},
		{
			name:        "interruption",
			msg:         gemini.ServerMessage{ServerContent: &gemini.ServerContent{Interrupted: true}},
			wantFlushes: 1,
		},
		{
			name: "everything at once",
			msg: gemini.ServerMessage{
				ToolCall: &gemini.ToolCallMsg{FunctionCalls: []gemini.FunctionCall{{ID: "c1", Name: gemini.GenerateImageTool}}},
				ServerContent: &gemini.ServerContent{
					ModelTurn:   &gemini.ModelTurn{Parts: []gemini.Part{audioPart("x")}},
					Interrupted: true,
				},
			},
			wantChunks:  []string{"x"},
			wantCalls:   1,
			wantFlushes: 1,
		},
		{
			name: "non-audio inline part is not scheduled",
			msg: gemini.ServerMessage{ServerContent: &gemini.ServerContent{ModelTurn: &gemini.ModelTurn{Parts: []gemini.Part{
				{InlineData: &gemini.Blob{MIMEType: "image/png", Data: "iVBO"}},
				audioPart("y"),
			}}}},
			wantChunks: []string{"y"},
		},
		{
			name: "empty message",
			msg:  gemini.ServerMessage{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := &recordingScheduler{}
			calls := &recordingCalls{}
			r := NewRouter(sched, calls, nil)

			require.NoError(t, r.Route(context.Background(), encode(t, tt.msg)))
			assert.Equal(t, tt.wantChunks, sched.chunks)
			assert.Len(t, calls.calls, tt.wantCalls)
			assert.Equal(t, tt.wantFlushes, sched.flushes)
			assert.Equal(t, uint64(1), r.Routed())
			assert.Zero(t, r.Malformed())
		})
	}
}

func TestRouterMalformedMessages(t *testing.T) {
	sched := &recordingScheduler{}
	r := NewRouter(sched, &recordingCalls{}, nil)

	for _, raw := range []string{"", "not json", "[1,2]", `{"serverContent":`} {
		err := r.Route(context.Background(), []byte(raw))
		assert.ErrorIs(t, err, gemini.ErrMalformedMessage, "payload %q", raw)
	}
	assert.Equal(t, uint64(4), r.Malformed())

	// A good message after bad ones is still handled.
	require.NoError(t, r.Route(context.Background(), []byte(`{"serverContent":{"interrupted":true}}`)))
	assert.Equal(t, 1, sched.flushes)
	assert.Equal(t, uint64(1), r.Routed())
}

func TestRouterRecoversHandlerPanic(t *testing.T) {
	sched := &recordingScheduler{}
	r := NewRouter(sched, panickingCalls{}, nil)

	raw := []byte(`{"toolCall":{"functionCalls":[{"id":"c1","name":"generate_image"}]}}`)
	err := r.Route(context.Background(), raw)
	assert.ErrorIs(t, err, gemini.ErrMalformedMessage)
	assert.Equal(t, uint64(1), r.Malformed())

	require.NoError(t, r.Route(context.Background(), []byte(`{"serverContent":{"interrupted":true}}`)))
	assert.Equal(t, 1, sched.flushes)
}

func TestRouterSchedulesBackToBack(t *testing.T) {
	mixer := playback.NewMixer(audio.PlaybackSampleRate)
	sched := playback.NewScheduler(mixer)
	r := NewRouter(sched, nil, nil)

	// 480 samples at 24 kHz is 20 ms.
	chunk := audio.EncodeBase64(make([]float32, 480))
	msg := gemini.ServerMessage{ServerContent: &gemini.ServerContent{
		ModelTurn: &gemini.ModelTurn{Parts: []gemini.Part{audioPart(chunk), audioPart(chunk)}},
	}}
	require.NoError(t, r.Route(context.Background(), encode(t, msg)))
	assert.InDelta(t, 0.04, sched.Cursor(), 1e-9)
	assert.Equal(t, 2, sched.ActiveCount())

	// An undecodable chunk is skipped without disturbing the timeline.
	bad := gemini.ServerMessage{ServerContent: &gemini.ServerContent{
		ModelTurn: &gemini.ModelTurn{Parts: []gemini.Part{audioPart("%%%")}},
	}}
	require.NoError(t, r.Route(context.Background(), encode(t, bad)))
	assert.InDelta(t, 0.04, sched.Cursor(), 1e-9)

	require.NoError(t, r.Route(context.Background(), []byte(`{"serverContent":{"interrupted":true}}`)))
	assert.Zero(t, sched.ActiveCount())
	assert.Zero(t, sched.Cursor())
	assert.Zero(t, mixer.Active())
}
