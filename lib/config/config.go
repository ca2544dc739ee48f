// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/catsock/lib/addrspec"
)

// EnvironmentVariable names the config file used by [Load].
const EnvironmentVariable = "CATSOCK_CONFIG"

// Accepted values for the enumerated settings.
var (
	Strategies = []string{"auto", "buffered", "splice"}
	Isolations = []string{"process", "goroutine"}
	LogFormats = []string{"text", "json"}
	LogLevels  = []string{"debug", "info", "warn", "error"}
)

// Config is the complete relay configuration.
type Config struct {
	// Listen is the addrspec the relay accepts connections on.
	// A positional argument overrides it.
	Listen string `yaml:"listen" json:"listen"`

	// Connect is the addrspec each accepted connection is relayed to.
	// A positional argument overrides it.
	Connect string `yaml:"connect" json:"connect"`

	// Relay configures how bytes are moved.
	Relay RelayConfig `yaml:"relay" json:"relay"`

	// Isolation selects per-connection isolation: "process" re-executes
	// the binary for each connection, "goroutine" runs the relay in a
	// supervised goroutine.
	// Default: process
	Isolation string `yaml:"isolation" json:"isolation"`

	// Log configures the structured logger.
	Log LogConfig `yaml:"log" json:"log"`
}

// RelayConfig configures the relay engine.
type RelayConfig struct {
	// Strategy is "auto", "buffered" or "splice".
	// Default: auto (splice on Linux, buffered elsewhere)
	Strategy string `yaml:"strategy" json:"strategy"`

	// BufferSize is the per-direction stage size in bytes, rounded
	// down to whole pages. Zero selects the engine default (1 MiB).
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level" json:"level"`

	// Format is text or json. Default: text
	Format string `yaml:"format" json:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Relay: RelayConfig{
			Strategy: "auto",
		},
		Isolation: "process",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads the file named by CATSOCK_CONFIG. It fails if the
// variable is unset; callers that treat the file as optional check the
// variable first.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of a catsock config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path on top of [Default]. Files
// ending in .json or .jsonc are JSON with comments and trailing commas
// allowed; anything else is YAML. ${VAR} and ${VAR:-default} are
// expanded in the address fields after decoding.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), c)
	default:
		return yaml.Unmarshal(data, c)
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":            os.Getenv("HOME"),
		"XDG_RUNTIME_DIR": os.Getenv("XDG_RUNTIME_DIR"),
	}
	c.Listen = expandVars(c.Listen, vars)
	c.Connect = expandVars(c.Connect, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, looking in
// vars first and then the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks every field. Listen and Connect may be empty (they
// usually come from the command line) but must parse when present.
func (c *Config) Validate() error {
	var errs []error

	if c.Listen != "" {
		spec, err := addrspec.Parse(c.Listen)
		if err != nil {
			errs = append(errs, fmt.Errorf("listen: %w", err))
		} else if !spec.Kind().CanListen() {
			errs = append(errs, fmt.Errorf("listen: %s addresses can only be connected to", spec.Kind()))
		}
	}
	if c.Connect != "" {
		if _, err := addrspec.Parse(c.Connect); err != nil {
			errs = append(errs, fmt.Errorf("connect: %w", err))
		}
	}

	if !slices.Contains(Strategies, c.Relay.Strategy) {
		errs = append(errs, fmt.Errorf("relay.strategy must be one of: %v", Strategies))
	}
	if c.Relay.BufferSize < 0 {
		errs = append(errs, fmt.Errorf("relay.buffer_size must not be negative, got %d", c.Relay.BufferSize))
	}
	if !slices.Contains(Isolations, c.Isolation) {
		errs = append(errs, fmt.Errorf("isolation must be one of: %v", Isolations))
	}
	if !slices.Contains(LogLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", LogLevels))
	}
	if !slices.Contains(LogFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", LogFormats))
	}

	return errors.Join(errs...)
}
