package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/locked"
	"github.com/joshuapare/heapkit/internal/logger"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	configPath string
	logDir     string
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Exercise heapkit allocation strategies",
	Long: `heapctl runs the heapkit allocators outside of a program: it simulates
random workloads against a mapped arena, replays allocation traces on a
synthetic arena, and prints the size-class tables of the fixed-block strategy.`,
	Version: "0.1.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
	SilenceUsage: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "YAML heap configuration (HEAPKIT_* variables override it)")
	rootCmd.PersistentFlags().
		StringVar(&logDir, "log-dir", "", "Write debug logs to daily files in this directory")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogging routes library logs to daily files under --log-dir, or to
// stderr in verbose mode.
func initLogging() error {
	switch {
	case logDir != "":
		return logger.Init(logger.Options{
			Enabled: true,
			LogDir:  logDir,
			Level:   slog.LevelDebug,
		})
	case verbose && !quiet:
		return logger.Init(logger.Options{
			Enabled: true,
			Writer:  os.Stderr,
			Level:   slog.LevelDebug,
		})
	default:
		return logger.Init(logger.Options{})
	}
}

// loadConfig reads --config and the environment.
func loadConfig() (locked.Config, error) {
	cfg, err := locked.LoadConfig(configPath)
	if err != nil {
		return locked.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
