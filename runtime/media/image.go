// Package media samples camera frames into fixed-size JPEG snapshots for the
// live uplink.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// MIMETypeJPEG tags outbound video frames.
const MIMETypeJPEG = "image/jpeg"

// Transport snapshot defaults.
const (
	DefaultFrameWidth  = 320
	DefaultFrameHeight = 240
	DefaultQuality     = 60
)

// ErrNoFrame is returned when a source has nothing to draw.
var ErrNoFrame = errors.New("no video frame available")

// SnapshotConfig sizes and compresses a snapshot.
type SnapshotConfig struct {
	Width   int
	Height  int
	Quality int // JPEG quality, 1-100
}

// DefaultSnapshotConfig returns the 320x240 quality-60 transport settings.
func DefaultSnapshotConfig() SnapshotConfig {
	return SnapshotConfig{
		Width:   DefaultFrameWidth,
		Height:  DefaultFrameHeight,
		Quality: DefaultQuality,
	}
}

func (c SnapshotConfig) withDefaults() SnapshotConfig {
	if c.Width <= 0 {
		c.Width = DefaultFrameWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultFrameHeight
	}
	if c.Quality <= 0 || c.Quality > 100 {
		c.Quality = DefaultQuality
	}
	return c
}

// Frame is one encoded snapshot ready for the uplink.
type Frame struct {
	Data     string // base64 JPEG
	MIMEType string
	Width    int
	Height   int
	Seq      uint64
}

// Rasterize draws src stretched onto a width x height RGBA canvas.
// The source aspect ratio is not preserved, matching a fixed-size canvas draw.
func Rasterize(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// EncodeJPEG compresses img at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// Snapshot rasterizes src per cfg and returns the base64 JPEG frame.
func Snapshot(src image.Image, cfg SnapshotConfig) (Frame, error) {
	if src == nil || src.Bounds().Empty() {
		return Frame{}, ErrNoFrame
	}
	cfg = cfg.withDefaults()
	data, err := EncodeJPEG(Rasterize(src, cfg.Width, cfg.Height), cfg.Quality)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Data:     base64.StdEncoding.EncodeToString(data),
		MIMEType: MIMETypeJPEG,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}
