package tracker

import (
	"context"
	"maps"

	"github.com/oshokin/dronpoint-adapter/internal/domain/event"
	"github.com/oshokin/dronpoint-adapter/internal/logger"
)

// Notifier delivers an alarm onset to the downstream sink.
type Notifier interface {
	Notify(ctx context.Context, e *event.Event) error
}

// Tracker keeps the set of active alarms and fires the notifier on each new one.
// It is owned by a single goroutine.
type Tracker struct {
	// targets is the allow-list of event classes.
	targets map[int]struct{}
	// notifier receives alarm onsets.
	notifier Notifier
	// active maps event id to the last record seen for it.
	active map[int64]event.Event
}

// New creates a tracker for the given target classes.
func New(targets []int, notifier Notifier) *Tracker {
	set := make(map[int]struct{}, len(targets))
	for _, class := range targets {
		set[class] = struct{}{}
	}

	return &Tracker{
		targets:  set,
		notifier: notifier,
		active:   make(map[int64]event.Event),
	}
}

// Run consumes events until the channel is closed or ctx is canceled.
// A closed channel means the subscriber has terminated.
func (t *Tracker) Run(ctx context.Context, events <-chan event.Event) error {
	ctx = logger.WithName(ctx, "tracker")

	logger.InfoKV(ctx, "Tracker start", "targets", len(t.targets))

	for {
		select {
		case <-ctx.Done():
			logger.InfoKV(ctx, "Context canceled, exiting", "active", len(t.active))
			return nil
		case e, ok := <-events:
			if !ok {
				logger.InfoKV(ctx, "Subscriber terminated, exiting", "active", len(t.active))
				return nil
			}

			t.Handle(ctx, &e)
		}
	}
}

// Handle processes one record and reports whether a notification was sent.
// Sink failures are logged and do not change the tracked state.
func (t *Tracker) Handle(ctx context.Context, e *event.Event) bool {
	if _, ok := t.targets[e.Class]; !ok {
		return false
	}

	if !e.IsAlarm() {
		return false
	}

	notified := false

	// Notify only on the onset of an alarm window.
	if _, tracked := t.active[e.ID]; !tracked {
		logger.InfoKV(ctx, "Alarm raised",
			"class", event.ClassName(e.Class),
			"id", e.ID,
			"start", e.Started(),
			"distance", e.Distance,
		)

		if err := t.notifier.Notify(ctx, e); err != nil {
			logger.WarnKV(ctx, "Alarm notification failed", "id", e.ID, "error", err)
		} else {
			notified = true
		}
	}

	t.active[e.ID] = *e

	if e.IsFinished() {
		logger.DebugKV(ctx, "Alarm finished", "id", e.ID)
		delete(t.active, e.ID)
	}

	return notified
}

// Active returns a copy of the tracked alarms.
func (t *Tracker) Active() map[int64]event.Event {
	return maps.Clone(t.active)
}
