package live

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/AltairaLabs/visionary/runtime/audio"
	"github.com/AltairaLabs/visionary/runtime/media"
	"github.com/AltairaLabs/visionary/runtime/providers/gemini"
)

func startUplink(t *testing.T, capacity int) (*Uplink, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	u := NewUplink(ctx, capacity, nil)
	var g errgroup.Group
	u.Start(&g)
	t.Cleanup(func() {
		cancel()
		require.NoError(t, g.Wait())
	})
	return u, cancel
}

func TestUplinkQueuesUntilAttached(t *testing.T) {
	u, _ := startUplink(t, 8)
	sink := &recordingSink{}

	require.NoError(t, u.SendAudio(audio.Frame{Data: "a1", MIMEType: audio.CaptureMIMEType}))
	require.NoError(t, u.SendAudio(audio.Frame{Data: "a2", MIMEType: audio.CaptureMIMEType}))
	require.NoError(t, u.SendVideo(media.Frame{Data: "v1", MIMEType: media.MIMETypeJPEG}))
	require.NoError(t, u.SendToolResponse(gemini.NewFunctionResult("c1", gemini.GenerateImageTool, ToolAck)))

	time.Sleep(20 * time.Millisecond)
	assert.False(t, u.Ready())
	assert.Equal(t, 2, u.Pending(KindAudio))
	assert.Equal(t, 1, u.Pending(KindVideo))
	assert.Equal(t, 1, u.Pending(KindTool))
	assert.Empty(t, sink.mediaOf(audio.CaptureMIMEType))

	require.NoError(t, u.Attach(sink))
	assert.True(t, u.Ready())

	require.Eventually(t, func() bool {
		return len(sink.mediaOf(audio.CaptureMIMEType)) == 2 &&
			len(sink.mediaOf(media.MIMETypeJPEG)) == 1 &&
			len(sink.toolResponses()) == 1
	}, time.Second, 5*time.Millisecond)

	got := sink.mediaOf(audio.CaptureMIMEType)
	assert.Equal(t, "a1", got[0].Data)
	assert.Equal(t, "a2", got[1].Data)
	assert.Equal(t, "c1", sink.toolResponses()[0].ID)
}

func TestUplinkPreservesOrderWithinLane(t *testing.T) {
	u, _ := startUplink(t, 64)
	sink := &recordingSink{}
	require.NoError(t, u.Attach(sink))

	want := make([]string, 0, 50)
	for i := range 50 {
		d := string(rune('A' + i%26))
		if i >= 26 {
			d += "x"
		}
		want = append(want, d)
		require.NoError(t, u.SendAudio(audio.Frame{Data: d, MIMEType: audio.CaptureMIMEType}))
	}

	require.Eventually(t, func() bool {
		return len(sink.mediaOf(audio.CaptureMIMEType)) == len(want)
	}, time.Second, 5*time.Millisecond)

	got := sink.mediaOf(audio.CaptureMIMEType)
	for i, m := range got {
		assert.Equal(t, want[i], m.Data, "position %d", i)
	}
}

func TestUplinkFullLaneDropsMessage(t *testing.T) {
	u, _ := startUplink(t, 2)

	require.NoError(t, u.SendVideo(media.Frame{Data: "1"}))
	require.NoError(t, u.SendVideo(media.Frame{Data: "2"}))
	err := u.SendVideo(media.Frame{Data: "3"})
	assert.ErrorIs(t, err, ErrUplinkFull)
	assert.Equal(t, 2, u.Pending(KindVideo))

	// Other lanes are unaffected.
	assert.NoError(t, u.SendAudio(audio.Frame{Data: "a"}))
}

func TestUplinkAttachOnce(t *testing.T) {
	u, _ := startUplink(t, 1)
	require.NoError(t, u.Attach(&recordingSink{}))
	assert.ErrorIs(t, u.Attach(&recordingSink{}), ErrAlreadyAttached)
}

func TestUplinkClosedAfterCancel(t *testing.T) {
	u, cancel := startUplink(t, 4)
	cancel()
	assert.ErrorIs(t, u.SendAudio(audio.Frame{Data: "a"}), ErrUplinkClosed)
	assert.ErrorIs(t, u.SendToolResponse(gemini.FunctionResponse{ID: "x"}), ErrUplinkClosed)
}

func TestUplinkSinkErrorDoesNotStopLane(t *testing.T) {
	u, _ := startUplink(t, 4)
	sink := &recordingSink{failures: 1}
	require.NoError(t, u.Attach(sink))

	require.NoError(t, u.SendAudio(audio.Frame{Data: "lost", MIMEType: audio.CaptureMIMEType}))
	require.NoError(t, u.SendAudio(audio.Frame{Data: "kept", MIMEType: audio.CaptureMIMEType}))

	require.Eventually(t, func() bool {
		return len(sink.mediaOf(audio.CaptureMIMEType)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "kept", sink.mediaOf(audio.CaptureMIMEType)[0].Data)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "audio", KindAudio.String())
	assert.Equal(t, "video", KindVideo.String())
	assert.Equal(t, "tool", KindTool.String())
	assert.Equal(t, "unknown", Kind(9).String())
}
