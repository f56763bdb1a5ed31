package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/game-launcher/internal/config"
	"github.com/oshokin/game-launcher/internal/logger"
	"github.com/oshokin/game-launcher/internal/service/game"
	"github.com/oshokin/game-launcher/internal/version"
)

var errUnknownLogLevel = errors.New("unknown log level")

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the log_level setting when provided.
	logLevel string

	// rootCmd represents the base command of the launcher.
	rootCmd = &cobra.Command{
		Use:   "game-launcher",
		Short: "Install the latest game release and launch it",
		Long: `Installs the latest published release of the configured project and launches the game.

The release feed coordinates, the asset to download, the executable to start and the
install directory are read from the settings file. Run "game-launcher init" to create it.`,
		SilenceUsage: true,
	}
)

// Execute runs the game-launcher CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "minimum log level (debug, info, warn, error)")

	rootCmd.AddCommand(newInitCommand(), newInstallCommand(), newLaunchCommand(), newStatusCommand())
}

// signalContext cancels on SIGINT or SIGTERM, aborting in-flight downloads and extraction.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// loadService reads settings, applies the log level and builds the game service.
func loadService() (*game.Service, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}

	parsed, ok := logger.ParseLogLevel(level)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownLogLevel, level)
	}

	logger.SetLevel(parsed)

	svc, err := game.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create launcher: %w", err)
	}

	return svc, nil
}
