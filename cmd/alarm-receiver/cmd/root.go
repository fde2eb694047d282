package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	repository "github.com/oshokin/dronpoint-adapter/internal/repository/alarms"
	"github.com/oshokin/dronpoint-adapter/internal/service/receiver"
	"github.com/oshokin/dronpoint-adapter/internal/version"
)

var (
	// databasePath to the SQLite file of received alarms.
	databasePath string
	// logLevel sets the log level.
	logLevel string

	// rootCmd represents the base command for running the receiver.
	rootCmd = &cobra.Command{
		Use:   "alarm-receiver [listen-address]",
		Short: "Run a test HTTP sink that records alarm notifications.",
		Long: `Starts an HTTP server that accepts the adapter's alarm notifications on
/alarm_notification/?class=&lat=&lon= and lists them on /alarm_list/.

Received alarms are stored in a SQLite file and survive restarts.
Listen address can be provided as argument (default 127.0.0.1:50411).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			listenAddress := receiver.DefaultListenAddress
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &receiver.Options{
				ListenAddress: listenAddress,
				DatabasePath:  databasePath,
				LogLevel:      logLevel,
			}

			cmd.SilenceUsage = true

			return receiver.Run(ctx, options)
		},
	}
)

// Execute runs the alarm-receiver CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().
		StringVarP(&databasePath, "db", "d", repository.DefaultDatabaseFilename, "path to the SQLite file of received alarms")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}
