package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tailored-agentic-units/streamchat/client"
	"github.com/tailored-agentic-units/streamchat/observability"
)

var (
	// Global flags
	configFile string
	endpoint   string
	apiURL     string
	model      string
	storePath  string
	observer   string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "streamchat",
	Short: "Terminal client for a streaming tool-using agent",
	Long: `streamchat talks to an agent over a WebSocket chat stream.

Run without arguments to resume the last conversation in an interactive
session. Lines starting with / are commands:
  /new          start a new conversation
  /open <id>    switch to a persisted conversation
  /cancel       stop the reply in progress
  /quit         exit`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		observability.RegisterObserver("zap", observability.NewZapObserver(logger))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runChat,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a JSON or YAML config file")
	flags.StringVar(&endpoint, "endpoint", "", "Chat WebSocket endpoint (overrides config)")
	flags.StringVar(&apiURL, "api", "", "Base URL of the conversation REST API (overrides config)")
	flags.StringVar(&model, "model", "", "Model requested for replies (overrides config)")
	flags.StringVar(&storePath, "store", "", "Directory that remembers the selected conversation (overrides config)")
	flags.StringVar(&observer, "observer", "zap", "Observer for client events: zap, slog, or noop")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log client events at debug level")

	rootCmd.AddCommand(listCmd, historyCmd, deleteCmd)
}

// loadConfig resolves the config file, if any, and applies flag overrides.
func loadConfig() (*client.Config, error) {
	cfg := client.DefaultConfig()
	if configFile != "" {
		loaded, err := client.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if endpoint != "" {
		cfg.Connection.Endpoint = endpoint
	}
	if apiURL != "" {
		cfg.History.BaseURL = apiURL
	}
	if model != "" {
		cfg.Dispatch.Model = model
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}
	if observer != "" {
		cfg.Observer = observer
	}
	return &cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
