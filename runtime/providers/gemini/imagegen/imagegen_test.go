package imagegen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	resp   *genai.GenerateContentResponse
	err    error
	model  string
	prompt string
	aspect string
}

func (f *fakeModels) GenerateContent(
	_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.model = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if config != nil && config.ImageConfig != nil {
		f.aspect = config.ImageConfig.AspectRatio
	}
	return f.resp, f.err
}

func imageResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func TestGenerator_Generate(t *testing.T) {
	models := &fakeModels{resp: imageResponse(
		&genai.Part{Text: "here you go"},
		&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
	)}
	g := newGenerator(Config{}, models)

	url, err := g.Generate(context.Background(), "a red fox")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AQID", url)
	assert.Equal(t, DefaultModel, models.model)
	assert.Equal(t, "a red fox", models.prompt)
	assert.Equal(t, "1:1", models.aspect)
}

func TestGenerator_NoImage(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{name: "nil response"},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}},
		{name: "text only", resp: imageResponse(&genai.Part{Text: "sorry"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGenerator(Config{}, &fakeModels{resp: tt.resp})
			_, err := g.Generate(context.Background(), "x")
			assert.ErrorIs(t, err, ErrNoImage)
		})
	}
}

func TestGenerator_BackendError(t *testing.T) {
	boom := errors.New("quota exceeded")
	g := newGenerator(Config{}, &fakeModels{err: boom})

	_, err := g.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestGenerator_RateLimitHonoursContext(t *testing.T) {
	g := newGenerator(Config{RatePerSecond: 0.001, Burst: 1}, &fakeModels{
		resp: imageResponse(&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{1}}}),
	})

	_, err := g.Generate(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Generate(ctx, "second")
	require.Error(t, err)
}
