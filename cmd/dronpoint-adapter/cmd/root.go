package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/dronpoint-adapter/internal/config"
	"github.com/oshokin/dronpoint-adapter/internal/logger"
	"github.com/oshokin/dronpoint-adapter/internal/service/adapter"
	"github.com/oshokin/dronpoint-adapter/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string
	// healthAddress overrides the configured gRPC health endpoint.
	healthAddress string

	// rootCmd represents the base command for running the adapter.
	rootCmd = &cobra.Command{
		Use:   "dronpoint-adapter",
		Short: "Forward DR server alarms to the DronPoint sink.",
		Long: `Subscribes to the DR server events stream and sends one notification per alarm
onset of the configured target classes to the DronPoint sink (HTTP or MQTT).

The session ends when the server closes the stream; the process then exits
with a non-zero status so the supervisor can restart it. Ctrl+C stops it cleanly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			defer logger.Sync()

			options := &adapter.Options{
				ConfigPath:    configPath,
				LogLevel:      logLevel,
				HealthAddress: healthAddress,
			}

			cmd.SilenceUsage = true

			return adapter.Run(ctx, options)
		},
	}
)

// Execute runs the dronpoint-adapter CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&healthAddress, "health-address", "", "gRPC health endpoint address override, e.g. :50412")
}
