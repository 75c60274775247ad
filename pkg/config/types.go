// Package config loads and validates StudioConfig manifests.
package config

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Manifest identity.
const (
	APIVersion = "visionary.altairalabs.ai/v1alpha1"
	KindStudio = "StudioConfig"
)

// Canvas backends.
const (
	CanvasMemory = "memory"
	CanvasRedis  = "redis"
)

// StudioConfigK8s is the on-disk manifest.
type StudioConfigK8s struct {
	APIVersion string            `yaml:"apiVersion"`
	Kind       string            `yaml:"kind"`
	Metadata   metav1.ObjectMeta `yaml:"metadata,omitempty"`
	Spec       StudioConfig      `yaml:"spec"`
}

// StudioConfig holds everything the live studio needs to start a session.
type StudioConfig struct {
	Live            LiveSpec            `yaml:"live,omitempty"`
	Audio           AudioSpec           `yaml:"audio,omitempty"`
	Video           VideoSpec           `yaml:"video,omitempty"`
	Uplink          UplinkSpec          `yaml:"uplink,omitempty"`
	ImageGeneration ImageGenerationSpec `yaml:"imageGeneration,omitempty"`
	Canvas          CanvasSpec          `yaml:"canvas,omitempty"`
	Logging         *LoggingSpec        `yaml:"logging,omitempty"`
	Telemetry       TelemetrySpec       `yaml:"telemetry,omitempty"`

	// APIKey is never read from the manifest; see LoadAPIKey.
	APIKey string `yaml:"-"`
}

// LiveSpec configures the live model session.
type LiveSpec struct {
	URL               string `yaml:"url,omitempty"`
	Model             string `yaml:"model,omitempty"`
	Voice             string `yaml:"voice,omitempty"`
	SystemInstruction string `yaml:"systemInstruction,omitempty"`
	// Mode is "video+voice" or "voice".
	Mode         string        `yaml:"mode,omitempty"`
	SetupTimeout time.Duration `yaml:"setupTimeout,omitempty"`
}

// AudioSpec configures capture framing. The wire rates are fixed at 16 kHz
// up and 24 kHz down.
type AudioSpec struct {
	// FrameSize is the number of capture samples per uplink frame.
	FrameSize int `yaml:"frameSize,omitempty"`
	// FramesPerBuffer is the device read size.
	FramesPerBuffer int `yaml:"framesPerBuffer,omitempty"`
}

// VideoSpec configures the camera and the snapshot stream.
type VideoSpec struct {
	SampleInterval time.Duration `yaml:"sampleInterval,omitempty"`
	Width          int           `yaml:"width,omitempty"`
	Height         int           `yaml:"height,omitempty"`
	Quality        int           `yaml:"quality,omitempty"`
	Device         string        `yaml:"device,omitempty"`
	FFmpegPath     string        `yaml:"ffmpegPath,omitempty"`
	CameraWidth    int           `yaml:"cameraWidth,omitempty"`
	CameraHeight   int           `yaml:"cameraHeight,omitempty"`
	CameraFPS      int           `yaml:"cameraFps,omitempty"`
}

// UplinkSpec bounds outbound queues.
type UplinkSpec struct {
	LaneCapacity int `yaml:"laneCapacity,omitempty"`
}

// ImageGenerationSpec configures the image model.
type ImageGenerationSpec struct {
	Model         string        `yaml:"model,omitempty"`
	AspectRatio   string        `yaml:"aspectRatio,omitempty"`
	RatePerSecond float64       `yaml:"ratePerSecond,omitempty"`
	Burst         int           `yaml:"burst,omitempty"`
	Concurrency   int           `yaml:"concurrency,omitempty"`
	Timeout       time.Duration `yaml:"timeout,omitempty"`
}

// CanvasSpec selects where canvas items live.
type CanvasSpec struct {
	Backend string    `yaml:"backend,omitempty"`
	Redis   RedisSpec `yaml:"redis,omitempty"`
}

// RedisSpec locates the redis canvas.
type RedisSpec struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	Board    string `yaml:"board,omitempty"`
}

// LoggingSpec configures the runtime logger.
type LoggingSpec struct {
	DefaultLevel string            `yaml:"defaultLevel,omitempty"`
	Format       string            `yaml:"format,omitempty"`
	CommonFields map[string]string `yaml:"commonFields,omitempty"`
	// Modules maps a dotted module name to its level.
	Modules map[string]string `yaml:"modules,omitempty"`
}

// TelemetrySpec configures metrics and tracing.
type TelemetrySpec struct {
	MetricsAddr  string `yaml:"metricsAddr,omitempty"`
	OTLPEndpoint string `yaml:"otlpEndpoint,omitempty"`
	ServiceName  string `yaml:"serviceName,omitempty"`
}
