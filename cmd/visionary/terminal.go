package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/AltairaLabs/visionary/runtime/canvas"
)

// sessionControls is the part of the controller driven from the keyboard.
type sessionControls interface {
	ToggleMic() bool
	ToggleVideo() bool
}

// handleKeys applies m/v keystrokes from in until q, end of input, or ctx
// ends.
func handleKeys(ctx context.Context, in io.Reader, ctrl sessionControls, out io.Writer) {
	keys := make(chan byte)
	go func() {
		defer close(keys)
		r := bufio.NewReader(in)
		for {
			b, err := r.ReadByte()
			if err != nil {
				return
			}
			select {
			case keys <- b:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case k, ok := <-keys:
			if !ok {
				return
			}
			switch k {
			case 'm', 'M':
				fmt.Fprintf(out, "Microphone %s\n", onOff(ctrl.ToggleMic()))
			case 'v', 'V':
				fmt.Fprintf(out, "Camera %s\n", onOff(ctrl.ToggleVideo()))
			case 'q', 'Q':
				return
			}
		}
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// printCanvas writes one line per canvas update until updates is closed.
func printCanvas(updates <-chan canvas.Update, out io.Writer) {
	for u := range updates {
		switch u.Kind {
		case canvas.UpdateAdded:
			fmt.Fprintf(out, "[canvas] %s drawing %q at (%d,%d)\n", u.Item.ID, u.Item.Prompt, u.Item.X, u.Item.Y)
		case canvas.UpdateFinalized:
			fmt.Fprintf(out, "[canvas] %s ready (%d bytes)\n", u.Item.ID, len(u.Item.URL))
		}
	}
}

// terminalNotifier shows alerts on the terminal.
type terminalNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func (n *terminalNotifier) Alert(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "⚠ %s\n", msg)
}
