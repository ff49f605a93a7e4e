package client_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/streamchat/client"
	"github.com/tailored-agentic-units/streamchat/core/protocol"
)

func TestDefaultConfig(t *testing.T) {
	cfg := client.DefaultConfig()

	assert.Equal(t, "ws://localhost:8000/api/chat/ws", cfg.Connection.Endpoint)
	assert.Equal(t, protocol.DefaultModel, cfg.Dispatch.Model)
	assert.Equal(t, "http://localhost:8000", cfg.History.BaseURL)
	assert.Empty(t, cfg.Store.Path)
	assert.Equal(t, "slog", cfg.Observer)
}

func TestConfig_Merge(t *testing.T) {
	cfg := client.DefaultConfig()
	source := client.Config{Observer: "noop"}
	source.Dispatch.Model = "qwen3-max"

	cfg.Merge(&source)

	assert.Equal(t, "noop", cfg.Observer)
	assert.Equal(t, "qwen3-max", cfg.Dispatch.Model)
	assert.Equal(t, "ws://localhost:8000/api/chat/ws", cfg.Connection.Endpoint, "zero values keep defaults")
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "config.json",
			content: `{
				"connection": {"endpoint": "wss://agent.example/api/chat/ws"},
				"dispatch": {"model": "qwen3-max"},
				"history": {"base_url": "https://agent.example", "timeout": 10000000000},
				"store": {"path": "/var/lib/streamchat"}
			}`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `
connection:
  endpoint: wss://agent.example/api/chat/ws
dispatch:
  model: qwen3-max
history:
  base_url: https://agent.example
  timeout: 10s
store:
  path: /var/lib/streamchat
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := client.LoadConfig(writeConfig(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.Equal(t, "wss://agent.example/api/chat/ws", cfg.Connection.Endpoint)
			assert.Equal(t, 64, cfg.Connection.SignalBuffer)
			assert.Equal(t, "qwen3-max", cfg.Dispatch.Model)
			assert.Equal(t, "https://agent.example", cfg.History.BaseURL)
			assert.Equal(t, 10*time.Second, cfg.History.Timeout)
			assert.Equal(t, "/var/lib/streamchat", cfg.Store.Path)
			assert.Equal(t, "slog", cfg.Observer)
		})
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := client.LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = client.LoadConfig(writeConfig(t, "bad.json", `{"connection":`))
	assert.ErrorContains(t, err, "failed to parse config file")
}
