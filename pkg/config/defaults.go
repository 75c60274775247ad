package config

import (
	"time"

	"github.com/AltairaLabs/visionary/runtime/audio"
	"github.com/AltairaLabs/visionary/runtime/device"
	"github.com/AltairaLabs/visionary/runtime/media"
	"github.com/AltairaLabs/visionary/runtime/providers/gemini"
	"github.com/AltairaLabs/visionary/runtime/providers/gemini/imagegen"
	"github.com/AltairaLabs/visionary/runtime/telemetry"
)

// Default values not owned by a runtime package.
const (
	DefaultMode         = "video+voice"
	DefaultLaneCapacity = 64
	DefaultConcurrency  = 2
	DefaultRedisAddr    = "localhost:6379"
)

// Default returns a config with every default applied.
func Default() *StudioConfig {
	cfg := &StudioConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields.
func (c *StudioConfig) ApplyDefaults() {
	l := &c.Live
	l.URL = orString(l.URL, gemini.DefaultLiveURL)
	l.Model = orString(l.Model, gemini.DefaultLiveModel)
	l.Voice = orString(l.Voice, gemini.DefaultVoice)
	l.SystemInstruction = orString(l.SystemInstruction, gemini.DefaultSystemInstruction)
	l.Mode = orString(l.Mode, DefaultMode)
	l.SetupTimeout = orDuration(l.SetupTimeout, gemini.DefaultSetupTimeout)

	a := &c.Audio
	a.FrameSize = orInt(a.FrameSize, audio.FrameSize)
	a.FramesPerBuffer = orInt(a.FramesPerBuffer, a.FrameSize)

	v := &c.Video
	v.SampleInterval = orDuration(v.SampleInterval, media.DefaultSampleInterval)
	v.Width = orInt(v.Width, media.DefaultFrameWidth)
	v.Height = orInt(v.Height, media.DefaultFrameHeight)
	v.Quality = orInt(v.Quality, media.DefaultQuality)
	v.FFmpegPath = orString(v.FFmpegPath, "ffmpeg")
	v.CameraWidth = orInt(v.CameraWidth, device.DefaultVideoWidth)
	v.CameraHeight = orInt(v.CameraHeight, device.DefaultVideoHeight)
	v.CameraFPS = orInt(v.CameraFPS, device.DefaultVideoFrameRate)

	c.Uplink.LaneCapacity = orInt(c.Uplink.LaneCapacity, DefaultLaneCapacity)

	g := &c.ImageGeneration
	g.Model = orString(g.Model, imagegen.DefaultModel)
	g.AspectRatio = orString(g.AspectRatio, imagegen.DefaultAspectRatio)
	if g.RatePerSecond <= 0 {
		g.RatePerSecond = imagegen.DefaultRateLimit
	}
	g.Burst = orInt(g.Burst, imagegen.DefaultBurst)
	g.Concurrency = orInt(g.Concurrency, DefaultConcurrency)
	g.Timeout = orDuration(g.Timeout, imagegen.DefaultTimeout)

	c.Canvas.Backend = orString(c.Canvas.Backend, CanvasMemory)
	if c.Canvas.Backend == CanvasRedis {
		c.Canvas.Redis.Addr = orString(c.Canvas.Redis.Addr, DefaultRedisAddr)
	}

	c.Telemetry.ServiceName = orString(c.Telemetry.ServiceName, telemetry.DefaultServiceName)
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
