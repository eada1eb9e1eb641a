// Package config loads per-project settings.
//
// Precedence (highest to lowest):
//  1. Environment variables (PHASEGATE_LOG_LEVEL, PHASEGATE_METRICS_WORKERS, ...)
//  2. <root>/.phasegate/config.yaml
//  3. Built-in defaults
//
// Environment names map to keys by stripping the prefix and splitting on the
// first underscore: PHASEGATE_PATHS_ACTIVE_DIR -> paths.active_dir.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/HendryAvila/phasegate/internal/ledger"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "PHASEGATE_"

const maxConfigFileSize = 1024 * 1024

// defaults is loaded first so that zero values in the file (false, 0) are
// still distinguishable from "not set".
var defaults = []byte(`
paths:
  state_dir: .phasegate
  active_dir: work/active
  removed_dir: work/removed
log:
  level: info
  format: console
metrics:
  workers: 4
telemetry:
  enabled: false
  stdout: false
history:
  enabled: true
`)

// Config is the resolved configuration of one project.
type Config struct {
	Paths     PathsConfig     `koanf:"paths"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	History   HistoryConfig   `koanf:"history"`
}

// PathsConfig names the state and work directories, relative to the root
// unless absolute.
type PathsConfig struct {
	StateDir   string `koanf:"state_dir" validate:"required"`
	ActiveDir  string `koanf:"active_dir" validate:"required"`
	RemovedDir string `koanf:"removed_dir" validate:"required,nefield=ActiveDir"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// MetricsConfig bounds the rebuild worker pool.
type MetricsConfig struct {
	Workers int `koanf:"workers" validate:"min=1,max=64"`
}

// TelemetryConfig toggles OpenTelemetry export.
type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
	Stdout  bool `koanf:"stdout"`
}

// HistoryConfig toggles the SQLite transition journal.
type HistoryConfig struct {
	Enabled bool `koanf:"enabled"`
}

var validate = validator.New()

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := parse(nil, false)
	if err != nil {
		panic(fmt.Sprintf("config: built-in defaults are invalid: %v", err))
	}
	return cfg
}

// Load reads the configuration for the project at root. A missing config
// file is not an error.
func Load(root string) (*Config, error) {
	path := ledger.NewLayout(root).ConfigPath()
	content, err := readFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := parse(content, true)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Layout resolves the project layout for root from the configured paths.
func (c *Config) Layout(root string) ledger.Layout {
	return ledger.Layout{
		Root:       root,
		StateDir:   c.Paths.StateDir,
		ActiveDir:  c.Paths.ActiveDir,
		RemovedDir: c.Paths.RemovedDir,
	}
}

// Validate checks value ranges and enums.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s %s", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, ledger.FSError(fmt.Errorf("stat config file: %w", err))
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, ledger.FSError(fmt.Errorf("read config file: %w", err))
	}
	return content, nil
}

// parse layers defaults, file content and, when useEnv is set, the
// environment.
func parse(content []byte, useEnv bool) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if useEnv {
		if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
			return nil, fmt.Errorf("failed to load environment variables: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps PHASEGATE_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}
