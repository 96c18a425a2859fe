// Package main provides the fidx CLI entry point.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/facultyindex/facultyindex/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool
	configPath  string

	appConfig *config.Config
	logger    = zap.NewNop()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	logger.Sync() //nolint:errcheck
	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(ExitInterrupted)
		}
		exitWithError(ExitError, "%v", err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fidx",
	Short: "Build a faculty publication catalog from scraped rosters",
	Long: `fidx turns citation text scraped from faculty pages into a
deduplicated publication catalog cross-referenced against the Semantic
Scholar Academic Graph.

The catalog is a single JSON file rewritten after every processed name,
with an ephemeral SQLite index for ranked queries. All commands output
JSON by default; use --human for readable output.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level with development formatting")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/fidx/config.yml)")
	rootCmd.Version = Version
}

// setup loads .env, the configuration and the logger before any command.
func setup(cmd *cobra.Command, args []string) error {
	// .env is optional
	_ = godotenv.Load()

	var err error
	if configPath != "" {
		appConfig, err = config.LoadFile(configPath)
	} else {
		appConfig, err = config.LoadGlobalConfig()
	}
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := appConfig.Validate(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	logger, err = newLogger(appConfig.LogLevel, verbose)
	if err != nil {
		exitWithError(ExitConfigError, "building logger: %v", err)
	}
	return nil
}

// newLogger builds a console logger on stderr.
func newLogger(level string, debug bool) (*zap.Logger, error) {
	var zcfg zap.Config
	if debug {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = lvl
	}
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}
