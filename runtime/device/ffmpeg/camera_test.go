package ffmpeg

import (
	"bytes"
	"io"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/visionary/runtime/device"
	"github.com/AltairaLabs/visionary/runtime/media"
)

func rgbFrame(w, h int, r, g, b byte) []byte {
	return bytes.Repeat([]byte{r, g, b}, w*h)
}

func TestCamera_DecodesFramesAndReportsReadiness(t *testing.T) {
	pr, pw := io.Pipe()
	cam := newCamera(pr, 2, 2, func() error { return pw.Close() })
	defer cam.Close()

	assert.Equal(t, media.HaveMetadata, cam.ReadyState())
	_, err := cam.Frame()
	require.ErrorIs(t, err, media.ErrNoFrame)

	_, err = pw.Write(rgbFrame(2, 2, 10, 20, 30))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return cam.Frames() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, media.HaveCurrentData, cam.ReadyState())

	img, err := cam.Frame()
	require.NoError(t, err)
	r, g, b, a := img.At(1, 1).RGBA()
	assert.Equal(t, []uint32{10, 20, 30, 255}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})

	_, err = pw.Write(rgbFrame(2, 2, 1, 1, 1))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return cam.Frames() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, media.HaveEnoughData, cam.ReadyState())
}

func TestCamera_CloseOnPartialFrame(t *testing.T) {
	pr, pw := io.Pipe()
	cam := newCamera(pr, 2, 2, func() error { return pw.Close() })

	go func() { _, _ = pw.Write([]byte{1, 2, 3}) }()
	require.NoError(t, cam.Close())
	require.NoError(t, cam.Close())
	assert.Equal(t, uint64(0), cam.Frames())
}

func TestOpener_Args(t *testing.T) {
	o := &Opener{Device: "cam0"}
	args := o.args(device.VideoConstraints{Width: 640, Height: 480, FrameRate: 15})

	assert.Contains(t, args, "640x480")
	assert.Contains(t, args, "15")
	assert.Contains(t, args, "rgb24")
	if runtime.GOOS == "windows" {
		assert.Contains(t, args, "video=cam0")
	} else {
		assert.Contains(t, args, "cam0")
	}
}

func TestOpener_MissingBinary(t *testing.T) {
	o := &Opener{Binary: "definitely-not-ffmpeg-binary"}
	_, _, err := o.OpenCamera(t.Context(), *device.DefaultVideoConstraints())
	require.ErrorIs(t, err, device.ErrNoDevice)
}
