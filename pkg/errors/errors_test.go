package errors_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	pkgerrors "github.com/AltairaLabs/visionary/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := pkgerrors.New("live", "Start", cause)

	assert.Equal(t, "live", err.Component)
	assert.Equal(t, "Start", err.Operation)
	assert.Equal(t, 0, err.StatusCode)
	assert.Nil(t, err.Details)
	assert.Equal(t, cause, err.Cause)
}

func TestError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *pkgerrors.ContextualError
		want string
	}{
		{"cause", pkgerrors.New("gemini", "Dial", fmt.Errorf("refused")), "[gemini] Dial: refused"},
		{"no cause", pkgerrors.New("canvas", "Finalize", nil), "[canvas] Finalize"},
		{
			"status",
			pkgerrors.New("gemini", "GenerateImage", fmt.Errorf("quota")).WithStatusCode(429),
			"[gemini] GenerateImage (status 429): quota",
		},
		{"status no cause", pkgerrors.New("live", "Attach", nil).WithStatusCode(409), "[live] Attach (status 409)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestBuildersChain(t *testing.T) {
	err := pkgerrors.New("live", "Start", io.EOF)
	details := map[string]any{"mode": "voice-only"}

	assert.Same(t, err, err.WithStatusCode(500))
	assert.Same(t, err, err.WithDetails(details))
	assert.Equal(t, 500, err.StatusCode)
	assert.Equal(t, details, err.Details)
}

func TestUnwrap(t *testing.T) {
	err := pkgerrors.New("gemini", "Receive", io.ErrUnexpectedEOF)
	wrapped := fmt.Errorf("downlink: %w", err)

	assert.ErrorIs(t, wrapped, io.ErrUnexpectedEOF)

	var ce *pkgerrors.ContextualError
	require.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, "Receive", ce.Operation)
}

func TestComponentOf(t *testing.T) {
	assert.Equal(t, "live", pkgerrors.ComponentOf(fmt.Errorf("x: %w", pkgerrors.New("live", "Stop", nil))))
	assert.Equal(t, "", pkgerrors.ComponentOf(io.EOF))
	assert.Equal(t, "", pkgerrors.ComponentOf(nil))
}
