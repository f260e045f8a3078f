package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rfd62794/rpgCore-sub007/internal/config"
	"github.com/rfd62794/rpgCore-sub007/internal/logger"
	"github.com/rfd62794/rpgCore-sub007/pkg/assets"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	configPath string

	// cfg is populated before every command runs.
	cfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "assetctl",
	Short: "Inspect and validate DGT asset containers",
	Long: `assetctl reads DGT asset containers: it reports header metadata,
lists the assets each registry holds, instantiates individual assets the way
the game runtime would, and can watch a container for changes.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVar(&configPath, "config", "", "Config file (YAML); DGT_* environment variables override it")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// setup loads the config and routes logs to stderr, or to a dated file in
// log_dir when one is configured.
func setup() error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = c

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}
	opts := logger.Options{
		Enabled: true,
		Level:   level,
		Format:  cfg.LogFormat,
		LogDir:  cfg.LogDir,
	}
	if cfg.LogDir == "" {
		opts.Output = os.Stderr
	}
	_, err = logger.Init(opts)
	return err
}

// openContainer loads path with the configured limits.
func openContainer(ctx context.Context, path string) (*assets.Loader, error) {
	l := assets.NewLoader(assets.LoaderOptions{
		Logger:         logger.L,
		MaxBlobSize:    cfg.MaxBlobSize,
		StrictChecksum: cfg.StrictChecksum,
	})
	if err := l.Load(ctx, path); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return l, nil
}

func newFactory(l *assets.Loader) *assets.Factory {
	return assets.NewFactory(l, assets.FactoryOptions{
		CacheCapacity: cfg.CacheCapacity,
		Logger:        logger.L,
	})
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
