// Package imagegen renders canvas images with the Gemini image model through
// the genai SDK. It is kept apart from the live protocol package so that live
// sessions do not link the genai client.
package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	pkgerrors "github.com/AltairaLabs/visionary/pkg/errors"
	"github.com/AltairaLabs/visionary/pkg/httputil"
	"github.com/AltairaLabs/visionary/runtime/logger"
)

// Image generation defaults.
const (
	DefaultModel       = "gemini-2.5-flash-image"
	DefaultAspectRatio = "1:1"
	DefaultRateLimit   = 1.0
	DefaultBurst       = 2
	DefaultTimeout     = httputil.DefaultImageTimeout
)

// ErrNoImage is returned when the model answers without an image part.
var ErrNoImage = errors.New("no image in response")

// contentGenerator is the subset of genai.Models used for image generation.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Config configures a Generator.
type Config struct {
	APIKey      string
	Model       string
	AspectRatio string
	// RatePerSecond limits outgoing generation requests. Zero uses the default.
	RatePerSecond float64
	Burst         int
	Timeout       time.Duration
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.AspectRatio == "" {
		c.AspectRatio = DefaultAspectRatio
	}
	if c.RatePerSecond == 0 {
		c.RatePerSecond = DefaultRateLimit
	}
	if c.Burst == 0 {
		c.Burst = DefaultBurst
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// Generator turns prompts into data URLs through the genai models API.
type Generator struct {
	cfg     Config
	models  contentGenerator
	limiter *rate.Limiter
}

// NewGenerator creates a generator backed by a genai client whose HTTP
// transport is traced.
func NewGenerator(ctx context.Context, cfg Config) (*Generator, error) {
	cfg.defaults()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httputil.NewTracedHTTPClient(cfg.Timeout),
	})
	if err != nil {
		return nil, pkgerrors.New("imagegen", "NewGenerator", err)
	}
	return newGenerator(cfg, client.Models), nil
}

func newGenerator(cfg Config, models contentGenerator) *Generator {
	cfg.defaults()
	return &Generator{
		cfg:     cfg,
		models:  models,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
	}
}

// Generate renders prompt and returns the first image as a data URL.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", pkgerrors.New("imagegen", "Generate", err)
	}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: g.cfg.AspectRatio},
	})
	if err != nil {
		return "", pkgerrors.New("imagegen", "Generate", err)
	}

	url, err := firstImageURL(resp)
	if err != nil {
		return "", pkgerrors.New("imagegen", "Generate", err).WithDetails(map[string]any{"model": g.cfg.Model})
	}
	logger.DebugContext(ctx, "Image generated",
		"model", g.cfg.Model,
		"bytes", len(url),
		"latency_ms", time.Since(start).Milliseconds())
	return url, nil
}

func firstImageURL(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoImage
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		return "data:" + part.InlineData.MIMEType + ";base64," +
			base64.StdEncoding.EncodeToString(part.InlineData.Data), nil
	}
	return "", ErrNoImage
}
