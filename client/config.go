package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/streamchat/connection"
	"github.com/tailored-agentic-units/streamchat/dispatch"
	"github.com/tailored-agentic-units/streamchat/history"
	"github.com/tailored-agentic-units/streamchat/store"
)

const defaultObserver = "slog"

// Config holds initialization parameters for every client subsystem.
type Config struct {
	Connection connection.Config `json:"connection" yaml:"connection"`
	Dispatch   dispatch.Config   `json:"dispatch" yaml:"dispatch"`
	History    history.Config    `json:"history" yaml:"history"`
	Store      store.Config      `json:"store" yaml:"store"`
	Observer   string            `json:"observer,omitempty" yaml:"observer,omitempty"`
}

// DefaultConfig returns a Config for an agent on localhost:8000.
func DefaultConfig() Config {
	return Config{
		Connection: connection.DefaultConfig(),
		Dispatch:   dispatch.DefaultConfig(),
		History:    history.DefaultConfig(),
		Store:      store.DefaultConfig(),
		Observer:   defaultObserver,
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Connection.Merge(&source.Connection)
	c.Dispatch.Merge(&source.Dispatch)
	c.History.Merge(&source.History)
	c.Store.Merge(&source.Store)

	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// LoadConfig reads a config file, merges it with defaults, and returns the
// result. Files ending in .yaml or .yml are parsed as YAML, anything else as
// JSON.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	default:
		err = json.Unmarshal(data, &loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
