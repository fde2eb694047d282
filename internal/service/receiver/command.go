package receiver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	api "github.com/oshokin/dronpoint-adapter/internal/api/http/receiver"
	"github.com/oshokin/dronpoint-adapter/internal/config"
	"github.com/oshokin/dronpoint-adapter/internal/logger"
	repository "github.com/oshokin/dronpoint-adapter/internal/repository/alarms"
)

// Options controls the alarm-receiver process.
type Options struct {
	// ListenAddress is the HTTP listen address.
	ListenAddress string
	// DatabasePath is the SQLite file of received alarms.
	DatabasePath string
	// LogLevel sets the log level when not empty.
	LogLevel string
}

// DefaultListenAddress is where the adapter's HTTP sink points by default.
const DefaultListenAddress = "127.0.0.1:50411"

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Run starts the HTTP server and blocks until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	if opts.LogLevel != "" {
		level, ok := logger.ParseLogLevel(opts.LogLevel)
		if !ok {
			return fmt.Errorf("%w: log level %q", config.ErrInvalid, opts.LogLevel)
		}

		logger.SetLevel(level)
	}

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-receiver")

	listenAddress := opts.ListenAddress
	if listenAddress == "" {
		listenAddress = DefaultListenAddress
	}

	repo, err := repository.Open(ctx, opts.DatabasePath)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}

	defer func() {
		_ = repo.Close()
	}()

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	return serve(ctx, lis, api.NewServer(repo).Router(ctx))
}

// serve runs handler on lis until ctx is canceled, then shuts down gracefully.
func serve(ctx context.Context, lis net.Listener, handler http.Handler) error {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.InfoKV(ctx, "Alarm receiver listening", "listen_address", lis.Addr().String())

	// Closed after Shutdown finishes.
	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()
		logger.Info(ctx, "Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.ErrorKV(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done
	logger.Info(ctx, "HTTP server stopped")

	return nil
}
