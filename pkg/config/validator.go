package config

import (
	"errors"
	"fmt"
)

// Validate checks cross-field rules the schema cannot express. It expects
// defaults to have been applied.
func (c *StudioConfig) Validate() error {
	var errs []error
	if c.Live.Mode != "video+voice" && c.Live.Mode != "voice" {
		errs = append(errs, fmt.Errorf("live.mode %q must be video+voice or voice", c.Live.Mode))
	}
	if c.Audio.FramesPerBuffer > c.Audio.FrameSize {
		errs = append(errs, fmt.Errorf("audio.framesPerBuffer %d exceeds frameSize %d",
			c.Audio.FramesPerBuffer, c.Audio.FrameSize))
	}
	if c.Video.Width > c.Video.CameraWidth || c.Video.Height > c.Video.CameraHeight {
		errs = append(errs, fmt.Errorf("video snapshot %dx%d exceeds camera %dx%d",
			c.Video.Width, c.Video.Height, c.Video.CameraWidth, c.Video.CameraHeight))
	}
	switch c.Canvas.Backend {
	case CanvasMemory:
	case CanvasRedis:
		if c.Canvas.Redis.Addr == "" {
			errs = append(errs, errors.New("canvas.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("canvas.backend %q must be memory or redis", c.Canvas.Backend))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid studio config: %w", errors.Join(errs...))
	}
	return nil
}
