//go:build !portaudio

package main

import (
	"errors"

	"github.com/AltairaLabs/visionary/pkg/config"
	"github.com/AltairaLabs/visionary/runtime/device"
)

var errNoAudioBackend = errors.New("built without audio device support; rebuild with -tags portaudio")

func audioDevices(config.AudioSpec) (device.MicrophoneOpener, device.Player, error) {
	return nil, nil, errNoAudioBackend
}
