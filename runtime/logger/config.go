package logger

import (
	"log/slog"
	"strings"
	"sync"
)

// ModuleConfig holds per-module levels. More specific names win, so
// "runtime.live" overrides "runtime".
type ModuleConfig struct {
	mu           sync.RWMutex
	defaultLevel slog.Level
	modules      map[string]slog.Level
}

// NewModuleConfig creates a ModuleConfig with the given default level.
func NewModuleConfig(defaultLevel slog.Level) *ModuleConfig {
	return &ModuleConfig{defaultLevel: defaultLevel, modules: make(map[string]slog.Level)}
}

// SetModuleLevel sets the level for module (dot notation).
func (m *ModuleConfig) SetModuleLevel(module string, level slog.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[module] = level
}

// LevelFor walks from module up through its parents and returns the first
// configured level, or the default.
func (m *ModuleConfig) LevelFor(module string) slog.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for module != "" {
		if level, ok := m.modules[module]; ok {
			return level
		}
		dot := strings.LastIndex(module, ".")
		if dot == -1 {
			break
		}
		module = module[:dot]
	}
	return m.defaultLevel
}

// MinLevel is the lowest level any module is configured for.
func (m *ModuleConfig) MinLevel() slog.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lowest := m.defaultLevel
	for _, l := range m.modules {
		if l < lowest {
			lowest = l
		}
	}
	return lowest
}

// Log formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// LoggingConfigSpec mirrors config.LoggingSpec without importing it.
type LoggingConfigSpec struct {
	DefaultLevel string
	Format       string
	CommonFields map[string]string
	Modules      map[string]string
}

// Configure rebuilds DefaultLogger from cfg. A nil cfg is a no-op.
func Configure(cfg *LoggingConfigSpec) {
	if cfg == nil {
		return
	}
	level := slog.LevelInfo
	if cfg.DefaultLevel != "" {
		level = ParseLevel(cfg.DefaultLevel)
	}

	common := make([]slog.Attr, 0, len(cfg.CommonFields))
	for k, v := range cfg.CommonFields {
		common = append(common, slog.String(k, v))
	}

	mc := NewModuleConfig(level)
	for name, l := range cfg.Modules {
		mc.SetModuleLevel(name, ParseLevel(l))
	}

	base := newBaseHandler(mc.MinLevel(), cfg.Format == FormatJSON)
	var h slog.Handler
	if len(cfg.Modules) > 0 {
		h = NewModuleHandler(base, mc, common...)
	} else {
		h = NewContextHandler(base, common...)
	}
	DefaultLogger = slog.New(h)
}
