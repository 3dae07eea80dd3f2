// Command shortsrun executes and inspects pipeline runs. A run walks
// every configured region through keyword discovery, then drives each
// slot job through selection, assembly, and publish. Re-invoking the
// same run id resumes from persisted state instead of repeating work.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	pipeline "github.com/iam-hyo/2601-VPI-V3--shorts-pipline"
)

var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "shortsrun",
		Short:         "Durable multi-region shorts production pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn or error")
	root.AddCommand(newRunCmd(), newStatusCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "shortsrun:", err)
		os.Exit(1)
	}
}

func setupLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(flagLogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig reads the configured YAML file, or falls back to defaults
// when no file was given.
func loadConfig() (pipeline.Config, error) {
	if flagConfig == "" {
		return pipeline.DefaultConfig(), nil
	}
	return pipeline.LoadConfig(flagConfig)
}
