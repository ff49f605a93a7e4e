package dispatch

import "github.com/tailored-agentic-units/streamchat/core/protocol"

// Config holds outbound request parameters.
type Config struct {
	Model string `json:"model" yaml:"model"`
}

// DefaultConfig returns a Config using protocol.DefaultModel.
func DefaultConfig() Config {
	return Config{Model: protocol.DefaultModel}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Model != "" {
		c.Model = source.Model
	}
}
