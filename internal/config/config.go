// Package config loads editing session settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/entityundo/internal/core/observability/log"
	"github.com/zeusync/entityundo/internal/core/serialization"
)

type Config struct {
	LogLevel      string              `json:"log_level" yaml:"log_level"`
	Cache         CacheConfig         `json:"cache" yaml:"cache"`
	Commands      CommandsConfig      `json:"commands" yaml:"commands"`
	Undo          UndoConfig          `json:"undo" yaml:"undo"`
	Serialization SerializationConfig `json:"serialization" yaml:"serialization"`
}

type CacheConfig struct {
	// Metrics registers the snapshot cache collectors with prometheus.
	Metrics bool `json:"metrics" yaml:"metrics"`
}

type CommandsConfig struct {
	StrictUndoCapture   bool `json:"strict_undo_capture" yaml:"strict_undo_capture"`
	ActivateNewEntities bool `json:"activate_new_entities" yaml:"activate_new_entities"`
}

type UndoConfig struct {
	// Limit caps the history length, 0 keeps everything.
	Limit int `json:"limit,omitempty" yaml:"limit,omitempty"`
}

type SerializationConfig struct {
	FormatVersion uint16 `json:"format_version" yaml:"format_version"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Cache:    CacheConfig{Metrics: true},
		Commands: CommandsConfig{ActivateNewEntities: true},
		Serialization: SerializationConfig{
			FormatVersion: serialization.FormatVersion,
		},
	}
}

// LoadYAML reads config from r on top of the defaults. Empty input yields
// the defaults.
func LoadYAML(r io.Reader) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile reads a YAML config file.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadYAML(f)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Undo.Limit < 0 {
		return fmt.Errorf("undo.limit must not be negative, got %d", c.Undo.Limit)
	}
	if c.Serialization.FormatVersion != serialization.FormatVersion {
		return fmt.Errorf("serialization.format_version %d is not supported, want %d",
			c.Serialization.FormatVersion, serialization.FormatVersion)
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() log.Level {
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}
