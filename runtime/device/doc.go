// Package device models the capture devices of a live session.
//
// A MediaStream bundles one audio track and, in video mode, one video track.
// Tracks can be muted in place: a disabled microphone keeps delivering
// silence and a disabled camera keeps delivering black frames, so the
// session cadence never changes. Stopping a track releases the hardware.
//
// Concrete backends live in subpackages: portaudio for the microphone and
// speaker, ffmpeg for the camera.
package device
