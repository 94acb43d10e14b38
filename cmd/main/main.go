package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RichardKnop/mlserver/internal/config"
	"github.com/RichardKnop/mlserver/internal/logger"
)

var configDirs []string

var rootCmd = &cobra.Command{
	Use:          "mlserver",
	Short:        "mlserver answers, tags, moderates, summarizes and matches user text with pretrained models",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(
		&configDirs,
		"config-dir",
		[]string{".", "/etc/mlserver"},
		"directories searched for config.yaml, first match wins",
	)
	rootCmd.AddCommand(serveCmd, downloadCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and builds the process logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configDirs...)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(cfg.Env, cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}

	return cfg, log, nil
}
