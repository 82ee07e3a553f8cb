package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/corberan/ctce8-cfg-tool/internal/container"
	"github.com/corberan/ctce8-cfg-tool/internal/logging"
)

// DefaultPath is read when it exists and no --config flag is given.
const DefaultPath = "ctce8.toml"

// Config holds operator defaults for the ctce8 tool. IdentifierWidth 0
// means the identifier field is exactly as wide as the model string.
type Config struct {
	Model           string
	IdentifierWidth int
	Force           bool
	LogLevel        string
}

// ctce8.toml key mapping.
type fileConfig struct {
	Model           string `toml:"model"`
	IdentifierWidth int    `toml:"identifier_width"`
	Force           bool   `toml:"force"`
	LogLevel        string `toml:"log_level"`
}

func DefaultConfig() Config {
	return Config{}
}

// Load decodes path and overlays the keys it defines onto DefaultConfig.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load ctce8 config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load ctce8 config: unknown key %q", undecoded[0].String())
	}

	// Identifiers may carry meaningful spaces, so model is not trimmed.
	if meta.IsDefined("model") {
		cfg.Model = raw.Model
	}
	if meta.IsDefined("identifier_width") {
		cfg.IdentifierWidth = raw.IdentifierWidth
	}
	if meta.IsDefined("force") {
		cfg.Force = raw.Force
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("load ctce8 config: %w", err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if cfg.IdentifierWidth < 0 || cfg.IdentifierWidth > container.MaxIdentifierLen {
		return fmt.Errorf("identifier_width %d outside [0, %d]", cfg.IdentifierWidth, container.MaxIdentifierLen)
	}
	if cfg.IdentifierWidth > 0 && len(cfg.Model) > cfg.IdentifierWidth {
		return fmt.Errorf("model %q longer than identifier_width %d", cfg.Model, cfg.IdentifierWidth)
	}
	if len(cfg.Model) > container.MaxIdentifierLen {
		return fmt.Errorf("model longer than %d bytes", container.MaxIdentifierLen)
	}
	if cfg.LogLevel != "" {
		if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
			return fmt.Errorf("unknown log_level %q", cfg.LogLevel)
		}
	}
	return nil
}
