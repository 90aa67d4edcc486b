// Package cmd provides CLI commands for the vidqa application.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/vidqa/vidqa/core/config"
)

var (
	flagConfig   string
	flagLogLevel string
	flagJSONLog  bool

	cfgManager *config.Manager
)

var rootCmd = &cobra.Command{
	Use:   "vidqa",
	Short: "vidqa - question answering over video transcripts",
	Long: `vidqa indexes video transcripts and answers questions about them
using hybrid dense and keyword retrieval with a multi-tier response cache.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(); err != nil {
			return err
		}

		cfgManager = config.NewManager(configPath())
		if err := cfgManager.Load(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (default: <data dir>/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLog, "log-json", false, "Emit logs as JSON")
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	if dir := os.Getenv("VIDQA_DATA_DIR"); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".vidqa", "config.yaml")
}

func setupLogging() error {
	var level slog.Level
	switch flagLogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", flagLogLevel)
	}

	var handler slog.Handler
	if flagJSONLog {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
