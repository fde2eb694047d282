package subscriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/oshokin/dronpoint-adapter/internal/domain/event"
	"github.com/oshokin/dronpoint-adapter/internal/logger"
	"github.com/oshokin/dronpoint-adapter/internal/queue"
	"github.com/oshokin/dronpoint-adapter/internal/stream"
)

// Streamer opens the events stream.
type Streamer interface {
	Subscribe(ctx context.Context) (io.ReadCloser, error)
}

var (
	// ErrStreamClosed is the terminal error of a stream the peer ended.
	ErrStreamClosed = errors.New("server closed connection")
	// errAlreadyStarted is returned when Start is called twice.
	errAlreadyStarted = errors.New("subscriber already started")
)

// Subscriber owns the stream connection and the producer side of the queue.
type Subscriber struct {
	// streamer opens the connection.
	streamer Streamer
	// events is the queue handed to the consumer.
	events *queue.Unbounded[event.Event]
	// onState is called on every state change.
	onState func(State)

	// state holds the current State.
	state atomic.Int32
	// done is closed when the reader goroutine has exited.
	done chan struct{}
	// err is the terminal error, written before done is closed.
	err error

	// mu guards body, cancel and started.
	mu      sync.Mutex
	body    io.ReadCloser
	cancel  context.CancelFunc
	started bool

	stopOnce sync.Once
}

// Option configures a Subscriber.
type Option func(*Subscriber)

// WithStateHook registers fn to be called with every new state.
// fn runs on the goroutine that changes the state and must not block.
func WithStateHook(fn func(State)) Option {
	return func(s *Subscriber) {
		s.onState = fn
	}
}

// New creates an idle subscriber.
func New(streamer Streamer, opts ...Option) *Subscriber {
	s := &Subscriber{
		streamer: streamer,
		events:   queue.NewUnbounded[event.Event](),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setState(StateIdle)

	return s
}

// Start connects to the stream and launches the reader goroutine.
// Connection and authentication failures are returned here and leave the
// subscriber Failed with its queue closed.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errAlreadyStarted
	}

	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	logger.Info(ctx, "Subscriber start")
	s.setState(StateConnecting)

	body, err := s.streamer.Subscribe(runCtx)
	if err != nil {
		if runCtx.Err() != nil {
			s.finish(ctx, StateStopped, nil)
		} else {
			s.finish(ctx, StateFailed, err)
		}

		return fmt.Errorf("open events stream: %w", err)
	}

	s.mu.Lock()
	s.body = body
	stopped := runCtx.Err() != nil
	s.mu.Unlock()

	// Stop raced with the connection; it could not close a body it did not have.
	if stopped {
		_ = body.Close()
	}

	s.setState(StateStreaming)

	go s.run(ctx, runCtx, body)

	return nil
}

// Events returns the receive side of the queue. It is closed after the last
// event once the subscriber has stopped or failed.
func (s *Subscriber) Events() <-chan event.Event {
	return s.events.Out()
}

// Stop asks the reader to finish, aborts an in-flight read and drops events
// nobody will consume. It is idempotent and safe before Start.
func (s *Subscriber) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		cancel, body, started := s.cancel, s.body, s.started
		s.started = true
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}

		if body != nil {
			_ = body.Close()
		}

		s.events.Release()

		// Never started: nothing else will close done.
		if !started {
			s.finish(context.Background(), StateStopped, nil)
		}
	})
}

// Wait blocks until the reader goroutine has exited and returns the
// terminal error: nil after Stop, ErrStreamClosed-wrapped after a failure.
func (s *Subscriber) Wait() error {
	<-s.done

	return s.err
}

// Done is closed when the subscriber has exited.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal error once Done is closed, nil before.
func (s *Subscriber) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// State returns the current state.
func (s *Subscriber) State() State {
	return State(s.state.Load())
}

// run reads the stream until it ends or the subscriber is stopped.
func (s *Subscriber) run(ctx, runCtx context.Context, body io.ReadCloser) {
	decoder := stream.NewDecoder(body)

	for {
		// Stop flag is checked once per fragment.
		if runCtx.Err() != nil {
			logger.Info(ctx, "Subscriber stop event, terminate")
			s.finishStream(ctx, body, StateStopped, nil)

			return
		}

		events, err := decoder.Next()
		if err == nil {
			for _, e := range events {
				s.events.Push(e)
			}

			continue
		}

		var decodeErr *event.DecodeError
		if errors.As(err, &decodeErr) {
			logger.WarnKV(ctx, "JSON decode error, fragment skipped", "error", decodeErr.Err, "raw", decodeErr.Raw)
			continue
		}

		if runCtx.Err() != nil {
			logger.Info(ctx, "Subscriber stop event, terminate")
			s.finishStream(ctx, body, StateStopped, nil)

			return
		}

		if !errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: %w", ErrStreamClosed, err)
		} else {
			err = ErrStreamClosed
		}

		logger.CriticalKV(ctx, "Server closed connection", "error", err)
		s.finishStream(ctx, body, StateFailed, err)

		return
	}
}

func (s *Subscriber) finishStream(ctx context.Context, body io.ReadCloser, state State, err error) {
	_ = body.Close()

	s.finish(ctx, state, err)
}

// finish records the terminal state, closes the queue and releases waiters.
func (s *Subscriber) finish(ctx context.Context, state State, err error) {
	s.err = err
	s.setState(state)

	// The close is the end-of-stream marker for the consumer.
	s.events.Close()

	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	logger.InfoKV(ctx, "Subscriber finish", "state", state.String())
	close(s.done)
}

func (s *Subscriber) setState(state State) {
	s.state.Store(int32(state))

	if s.onState != nil {
		s.onState(state)
	}
}
