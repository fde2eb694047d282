package adapter

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/dronpoint-adapter/internal/api/grpc/health"
	"github.com/oshokin/dronpoint-adapter/internal/config"
	"github.com/oshokin/dronpoint-adapter/internal/domain/event"
	"github.com/oshokin/dronpoint-adapter/internal/logger"
	"github.com/oshokin/dronpoint-adapter/internal/notifier"
	"github.com/oshokin/dronpoint-adapter/internal/service/origin"
	"github.com/oshokin/dronpoint-adapter/internal/service/subscriber"
	"github.com/oshokin/dronpoint-adapter/internal/service/tracker"
)

// Options controls the adapter process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LogLevel overrides the configured log level when set.
	LogLevel string
	// HealthAddress overrides the configured health endpoint address when set.
	HealthAddress string
}

// Run executes one session and blocks until ctx is canceled or the stream ends.
// A canceled ctx is a clean shutdown and returns nil. A stream closed by the
// server returns an error wrapping subscriber.ErrStreamClosed.
//
//nolint:cyclop,funlen // Linear startup sequence; splitting would scatter the teardown order.
func Run(ctx context.Context, opts *Options) error {
	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Command line arguments override the file.
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}

	if opts.HealthAddress != "" {
		cfg.HealthAddress = opts.HealthAddress
	}

	ctx, err = setupLogger(ctx, &cfg.Log)
	if err != nil {
		return err
	}

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "dronpoint-adapter")

	// Probe the server; unreachable host and bad credentials stop here.
	client, err := origin.Dial(ctx, &cfg.Origin)
	if err != nil {
		return fmt.Errorf("dial origin: %w", err)
	}

	defer client.Close()

	sink, err := notifier.New(ctx, &cfg.Sink)
	if err != nil {
		return fmt.Errorf("create notifier: %w", err)
	}

	defer func() {
		_ = sink.Close()
	}()

	var healthServer *health.Server
	if cfg.HealthAddress != "" {
		healthServer = health.New()
	}

	sub := subscriber.New(client, subscriber.WithStateHook(func(state subscriber.State) {
		logger.DebugKV(ctx, "Subscriber state", "state", state.String())

		if healthServer != nil {
			healthServer.SetServing(state == subscriber.StateStreaming)
		}
	}))

	// Always executed, once, whichever way the session ends.
	teardown := sync.OnceFunc(func() {
		logger.Info(ctx, "Stopping subscriber")
		sub.Stop()
		_ = sub.Wait()
		logger.Info(ctx, "Finished")
	})
	defer teardown()

	logger.InfoKV(ctx, "Subscribing to events",
		"origin", client.String(),
		"sink", cfg.Sink.Kind,
		"target_classes", classNames(cfg.TargetClasses),
	)

	if err = sub.Start(ctx); err != nil {
		return fmt.Errorf("start subscriber: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	sessionCtx, cancel := context.WithCancel(groupCtx)

	defer cancel()

	group.Go(func() error {
		// The tracker leaves when the subscriber is gone; take the health server with it.
		defer cancel()

		return tracker.New(cfg.TargetClasses, sink).Run(sessionCtx, sub.Events())
	})

	if healthServer != nil {
		group.Go(func() error {
			return healthServer.ListenAndServe(sessionCtx, cfg.HealthAddress)
		})
	}

	err = group.Wait()

	teardown()

	if err != nil {
		return err
	}

	if ctx.Err() != nil {
		logger.Info(ctx, "Interrupted, clean shutdown")
		return nil
	}

	return sub.Err()
}

// setupLogger applies the log settings. A log file replaces the global logger
// with one that also writes to the rotating file.
func setupLogger(ctx context.Context, settings *config.Log) (context.Context, error) {
	level, ok := logger.ParseLogLevel(settings.Level)
	if !ok {
		return ctx, fmt.Errorf("%w: log level %q", config.ErrInvalid, settings.Level)
	}

	logger.SetLevel(level)

	if settings.File == "" {
		return ctx, nil
	}

	l := logger.NewWithFile(logger.AtomicLevel(), logger.FileOptions{Path: settings.File})
	logger.SetLogger(l)

	return logger.ToContext(ctx, l), nil
}

func classNames(classes []int) string {
	names := make([]string, 0, len(classes))
	for _, class := range classes {
		names = append(names, event.ClassName(class))
	}

	return strings.Join(names, ", ")
}
