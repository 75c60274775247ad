package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/AltairaLabs/visionary/runtime/logger"
)

// API key environment variables, in lookup order.
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvAPIKey       = "API_KEY"
)

// ErrMissingAPIKey is returned when no API key is set.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY or API_KEY must be set")

// Load reads, schema-validates and decodes a StudioConfig manifest, then
// applies defaults. An empty filename returns Default().
func Load(filename string) (*StudioConfig, error) {
	if filename == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a manifest from memory.
func Parse(data []byte) (*StudioConfig, error) {
	if err := ValidateStudioConfig(data); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var manifest StudioConfigK8s
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &manifest.Spec
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the
// environment without overriding variables already set. Missing files are
// ignored. With no arguments it reads .env.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
		logger.Debug("Loaded environment file", "path", f)
	}
	return nil
}

// LoadAPIKey fills c.APIKey from GEMINI_API_KEY, falling back to API_KEY.
func (c *StudioConfig) LoadAPIKey() error {
	for _, name := range []string{EnvGeminiAPIKey, EnvAPIKey} {
		if v := os.Getenv(name); v != "" {
			c.APIKey = v
			return nil
		}
	}
	return ErrMissingAPIKey
}

// LoggingConfig converts the logging section for logger.Configure. It
// returns nil when the manifest has no logging section.
func (c *StudioConfig) LoggingConfig() *logger.LoggingConfigSpec {
	if c.Logging == nil {
		return nil
	}
	return &logger.LoggingConfigSpec{
		DefaultLevel: c.Logging.DefaultLevel,
		Format:       c.Logging.Format,
		CommonFields: c.Logging.CommonFields,
		Modules:      c.Logging.Modules,
	}
}
