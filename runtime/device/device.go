package device

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/AltairaLabs/visionary/runtime/media"
)

// Kind distinguishes audio tracks from video tracks.
type Kind string

// Track kinds.
const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Preview defaults for the camera.
const (
	DefaultVideoWidth     = 640
	DefaultVideoHeight    = 480
	DefaultVideoFrameRate = 15
)

var (
	// ErrPermissionDenied is returned when the user or OS refuses device access.
	ErrPermissionDenied = errors.New("device permission denied")
	// ErrNoDevice is returned when no device of the requested kind exists.
	ErrNoDevice = errors.New("no such device")
)

// VideoConstraints requests a camera mode.
type VideoConstraints struct {
	Width     int
	Height    int
	FrameRate int
}

// DefaultVideoConstraints returns the 640x480 @ 15 fps preview mode.
func DefaultVideoConstraints() *VideoConstraints {
	return &VideoConstraints{
		Width:     DefaultVideoWidth,
		Height:    DefaultVideoHeight,
		FrameRate: DefaultVideoFrameRate,
	}
}

// Constraints describes the devices a session needs. Audio is always requested
// by the controller; Video is nil in voice-only mode.
type Constraints struct {
	Audio      bool
	SampleRate int
	Video      *VideoConstraints
}

// Acquirer opens devices.
type Acquirer interface {
	Acquire(ctx context.Context, c Constraints) (*MediaStream, error)
}

// Capturer is an open microphone.
type Capturer interface {
	// Run delivers captured samples to fn until ctx ends or the device fails.
	Run(ctx context.Context, fn func(samples []float32)) error
	Close() error
}

// Camera is an open camera.
type Camera interface {
	ReadyState() media.ReadyState
	Frame() (image.Image, error)
	Close() error
}

// Player renders pulled audio to an output device until ctx ends.
type Player interface {
	Play(ctx context.Context, sampleRate int, render func(out []float32)) error
}

// Track is one muteable device track.
type Track struct {
	id      string
	kind    Kind
	label   string
	enabled atomic.Bool
	ended   atomic.Bool

	stopOnce sync.Once
	release  func() error
}

func newTrack(kind Kind, label string, release func() error) *Track {
	t := &Track{id: uuid.NewString(), kind: kind, label: label, release: release}
	t.enabled.Store(true)
	return t
}

// ID returns the track id.
func (t *Track) ID() string { return t.id }

// Kind returns the track kind.
func (t *Track) Kind() Kind { return t.kind }

// Label returns the device label.
func (t *Track) Label() string { return t.label }

// Enabled reports whether the track is live rather than muted.
func (t *Track) Enabled() bool { return t.enabled.Load() }

// SetEnabled mutes or unmutes the track in place.
func (t *Track) SetEnabled(v bool) { t.enabled.Store(v) }

// Ended reports whether Stop has been called.
func (t *Track) Ended() bool { return t.ended.Load() }

// Stop ends the track and releases its device. Later calls are no-ops.
func (t *Track) Stop() error {
	var err error
	t.stopOnce.Do(func() {
		t.ended.Store(true)
		if t.release != nil {
			err = t.release()
		}
	})
	return err
}

// AudioTrack is a microphone track.
type AudioTrack struct {
	*Track
	capturer Capturer
}

// NewAudioTrack wraps an open microphone.
func NewAudioTrack(label string, c Capturer) *AudioTrack {
	return &AudioTrack{Track: newTrack(KindAudio, label, c.Close), capturer: c}
}

// Run forwards captured samples to fn until ctx ends or the track stops.
// Samples captured while the track is disabled are replaced with silence.
func (a *AudioTrack) Run(ctx context.Context, fn func(samples []float32)) error {
	return a.capturer.Run(ctx, func(samples []float32) {
		if a.Ended() {
			return
		}
		if !a.Enabled() {
			clear(samples)
		}
		fn(samples)
	})
}

// VideoTrack is a camera track. It satisfies media.FrameSource.
type VideoTrack struct {
	*Track
	camera Camera
}

// NewVideoTrack wraps an open camera.
func NewVideoTrack(label string, c Camera) *VideoTrack {
	return &VideoTrack{Track: newTrack(KindVideo, label, c.Close), camera: c}
}

// Active reports whether the track is still live.
func (v *VideoTrack) Active() bool { return !v.Ended() }

// ReadyState reports the camera's buffering state.
func (v *VideoTrack) ReadyState() media.ReadyState {
	if v.Ended() {
		return media.HaveNothing
	}
	return v.camera.ReadyState()
}

// Frame returns the latest camera frame, or a black frame of the same size
// while the track is disabled.
func (v *VideoTrack) Frame() (image.Image, error) {
	img, err := v.camera.Frame()
	if err != nil {
		return nil, err
	}
	if v.Enabled() {
		return img, nil
	}
	return blackFrame(img.Bounds()), nil
}

// blackFrame returns a black image with bounds r. A zero Gray pixel is black.
func blackFrame(r image.Rectangle) image.Image {
	return image.NewGray(r)
}

// MediaStream is the set of tracks acquired for one session.
type MediaStream struct {
	id    string
	audio *AudioTrack
	video *VideoTrack
}

// NewMediaStream bundles tracks. video may be nil.
func NewMediaStream(audio *AudioTrack, video *VideoTrack) *MediaStream {
	return &MediaStream{id: uuid.NewString(), audio: audio, video: video}
}

// ID returns the stream id.
func (s *MediaStream) ID() string { return s.id }

// Audio returns the audio track, or nil.
func (s *MediaStream) Audio() *AudioTrack { return s.audio }

// Video returns the video track, or nil in voice-only mode.
func (s *MediaStream) Video() *VideoTrack { return s.video }

// Tracks returns every track in the stream.
func (s *MediaStream) Tracks() []*Track {
	var out []*Track
	if s.audio != nil {
		out = append(out, s.audio.Track)
	}
	if s.video != nil {
		out = append(out, s.video.Track)
	}
	return out
}

// Active reports whether any track is still live.
func (s *MediaStream) Active() bool {
	for _, t := range s.Tracks() {
		if !t.Ended() {
			return true
		}
	}
	return false
}

// Stop stops every track and returns the joined release errors.
func (s *MediaStream) Stop() error {
	var errs []error
	for _, t := range s.Tracks() {
		if err := t.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MicrophoneOpener opens the default microphone at a sample rate.
type MicrophoneOpener interface {
	OpenMicrophone(ctx context.Context, sampleRate int) (Capturer, string, error)
}

// CameraOpener opens the default camera in a mode.
type CameraOpener interface {
	OpenCamera(ctx context.Context, c VideoConstraints) (Camera, string, error)
}

// CompositeAcquirer acquires the microphone and camera from separate backends.
// If the camera fails the microphone is released again.
type CompositeAcquirer struct {
	Microphone MicrophoneOpener
	Camera     CameraOpener
}

// Acquire implements Acquirer.
func (a *CompositeAcquirer) Acquire(ctx context.Context, c Constraints) (*MediaStream, error) {
	var audio *AudioTrack
	if c.Audio {
		if a.Microphone == nil {
			return nil, ErrNoDevice
		}
		capturer, label, err := a.Microphone.OpenMicrophone(ctx, c.SampleRate)
		if err != nil {
			return nil, err
		}
		audio = NewAudioTrack(label, capturer)
	}

	var video *VideoTrack
	if c.Video != nil {
		if a.Camera == nil {
			stopTrack(audio)
			return nil, ErrNoDevice
		}
		camera, label, err := a.Camera.OpenCamera(ctx, *c.Video)
		if err != nil {
			stopTrack(audio)
			return nil, err
		}
		video = NewVideoTrack(label, camera)
	}
	return NewMediaStream(audio, video), nil
}

func stopTrack(a *AudioTrack) {
	if a != nil {
		_ = a.Stop()
	}
}
