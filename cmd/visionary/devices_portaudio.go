//go:build portaudio

package main

import (
	"github.com/AltairaLabs/visionary/pkg/config"
	"github.com/AltairaLabs/visionary/runtime/device"
	"github.com/AltairaLabs/visionary/runtime/device/portaudio"
)

func audioDevices(spec config.AudioSpec) (device.MicrophoneOpener, device.Player, error) {
	return &portaudio.Microphone{FramesPerBuffer: spec.FramesPerBuffer}, &portaudio.Speaker{}, nil
}
