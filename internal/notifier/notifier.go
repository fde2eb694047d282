package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/dronpoint-adapter/internal/config"
	"github.com/oshokin/dronpoint-adapter/internal/domain/event"
)

var (
	// ErrSinkUnreachable is returned when a notification could not be delivered.
	ErrSinkUnreachable = errors.New("notification sink unreachable")

	// errSinkRequired is returned when New gets no settings.
	errSinkRequired = errors.New("sink settings must be provided")
)

// Notifier sends one notification per alarm onset.
type Notifier interface {
	// Notify delivers e. It returns an error wrapping ErrSinkUnreachable on failure.
	Notify(ctx context.Context, e *event.Event) error
	// Close releases the sink connection.
	Close() error
}

// New builds the notifier selected by settings.Kind.
func New(ctx context.Context, settings *config.Sink) (Notifier, error) {
	if settings == nil {
		return nil, errSinkRequired
	}

	switch settings.Kind {
	case config.SinkKindHTTP, "":
		return NewHTTP(settings)
	case config.SinkKindMQTT:
		return DialMQTT(ctx, settings)
	default:
		return nil, fmt.Errorf("%w: unknown sink kind %q", config.ErrInvalid, settings.Kind)
	}
}
