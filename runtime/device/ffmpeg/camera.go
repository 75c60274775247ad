// Package ffmpeg captures the camera by running ffmpeg and reading raw RGB
// frames from its stdout.
package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/AltairaLabs/visionary/runtime/device"
	"github.com/AltairaLabs/visionary/runtime/logger"
	"github.com/AltairaLabs/visionary/runtime/media"
)

const (
	defaultBinary = "ffmpeg"
	bytesPerPixel = 3
)

// Opener starts ffmpeg against a camera device.
type Opener struct {
	// Binary defaults to "ffmpeg" on PATH.
	Binary string
	// Device is the platform device name. It defaults to /dev/video0 on
	// Linux and index 0 elsewhere.
	Device string
}

// OpenCamera implements device.CameraOpener.
func (o *Opener) OpenCamera(_ context.Context, vc device.VideoConstraints) (device.Camera, string, error) {
	if vc.Width <= 0 || vc.Height <= 0 {
		d := device.DefaultVideoConstraints()
		vc.Width, vc.Height = d.Width, d.Height
	}
	if vc.FrameRate <= 0 {
		vc.FrameRate = device.DefaultVideoFrameRate
	}

	bin := o.Binary
	if bin == "" {
		bin = defaultBinary
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, "", fmt.Errorf("%w: ffmpeg not found: %w", device.ErrNoDevice, err)
	}

	args := o.args(vc)
	// The process outlives the acquire call, so it is not bound to its ctx.
	cmd := exec.Command(path, args...) //nolint:gosec // binary and args are built locally
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, "", fmt.Errorf("%w: failed to start ffmpeg: %w", device.ErrPermissionDenied, err)
	}
	logger.Debug("Camera opened", "args", args)

	cam := newCamera(stdout, vc.Width, vc.Height, func() error {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return nil
	})
	cam.wait = cmd.Wait
	return cam, o.deviceName(), nil
}

func (o *Opener) deviceName() string {
	if o.Device != "" {
		return o.Device
	}
	if runtime.GOOS == "linux" {
		return "/dev/video0"
	}
	return "0"
}

func (o *Opener) args(vc device.VideoConstraints) []string {
	var input string
	switch runtime.GOOS {
	case "darwin":
		input = "avfoundation"
	case "windows":
		input = "dshow"
	default:
		input = "v4l2"
	}
	name := o.deviceName()
	if input == "dshow" {
		name = "video=" + name
	}
	return []string{
		"-loglevel", "error",
		"-f", input,
		"-framerate", strconv.Itoa(vc.FrameRate),
		"-video_size", strconv.Itoa(vc.Width) + "x" + strconv.Itoa(vc.Height),
		"-i", name,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	}
}

// Camera decodes a raw rgb24 stream of fixed-size frames and keeps the latest.
type Camera struct {
	width, height int

	latest atomic.Pointer[image.RGBA]
	frames atomic.Uint64

	stop      func() error
	wait      func() error
	readerErr error
	done      chan struct{}
	closeOnce sync.Once
}

func newCamera(r io.Reader, width, height int, stop func() error) *Camera {
	c := &Camera{width: width, height: height, stop: stop, done: make(chan struct{})}
	go c.readLoop(r)
	return c
}

func (c *Camera) readLoop(r io.Reader) {
	defer close(c.done)
	br := bufio.NewReaderSize(r, c.width*c.height*bytesPerPixel)
	raw := make([]byte, c.width*c.height*bytesPerPixel)
	for {
		if _, err := io.ReadFull(br, raw); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				c.readerErr = err
			}
			return
		}
		img := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
		for i, j := 0, 0; i < len(raw); i, j = i+bytesPerPixel, j+4 {
			img.Pix[j] = raw[i]
			img.Pix[j+1] = raw[i+1]
			img.Pix[j+2] = raw[i+2]
			img.Pix[j+3] = 0xff
		}
		c.latest.Store(img)
		c.frames.Add(1)
	}
}

// ReadyState reports HaveMetadata until the first frame arrives, then
// HaveCurrentData, then HaveEnoughData once a second frame has replaced it.
func (c *Camera) ReadyState() media.ReadyState {
	switch n := c.frames.Load(); {
	case n == 0:
		return media.HaveMetadata
	case n == 1:
		return media.HaveCurrentData
	default:
		return media.HaveEnoughData
	}
}

// Frame returns the latest decoded frame.
func (c *Camera) Frame() (image.Image, error) {
	img := c.latest.Load()
	if img == nil {
		return nil, media.ErrNoFrame
	}
	return img, nil
}

// Frames returns the number of frames decoded so far.
func (c *Camera) Frames() uint64 { return c.frames.Load() }

// Close stops ffmpeg and waits for the reader to drain.
func (c *Camera) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.stop != nil {
			err = c.stop()
		}
		<-c.done
		if c.wait != nil {
			// ffmpeg exits non-zero when killed.
			_ = c.wait()
		}
		if err == nil {
			err = c.readerErr
		}
	})
	return err
}
