package queue

import "sync"

// Unbounded is a FIFO queue without capacity limit.
//
// Push and Close belong to the producer, Out and Release to the consumer.
// A goroutine moves items from the producer side to Out; it exits after Out
// has been closed or after Release.
type Unbounded[T any] struct {
	// in receives items from the producer.
	in chan T
	// out delivers items to the consumer; closed after the last item.
	out chan T
	// released is closed when the consumer gives up on the remaining items.
	released chan struct{}

	closeOnce   sync.Once
	releaseOnce sync.Once
}

// NewUnbounded creates a queue and starts its pump goroutine.
func NewUnbounded[T any]() *Unbounded[T] {
	q := &Unbounded[T]{
		in:       make(chan T),
		out:      make(chan T),
		released: make(chan struct{}),
	}

	go q.pump()

	return q
}

// Push appends v. It does not wait for the consumer.
// Push must not be called after Close.
func (q *Unbounded[T]) Push(v T) {
	select {
	case q.in <- v:
	case <-q.released:
	}
}

// Close marks the end of the stream. Out is closed once every item pushed
// before Close has been received. Close is idempotent.
func (q *Unbounded[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.in)
	})
}

// Out returns the channel the consumer receives from.
func (q *Unbounded[T]) Out() <-chan T {
	return q.out
}

// Release tells the queue the consumer is gone. Pending items are dropped
// and further pushes are discarded. Release is idempotent.
func (q *Unbounded[T]) Release() {
	q.releaseOnce.Do(func() {
		close(q.released)
	})
}

func (q *Unbounded[T]) pump() {
	defer close(q.out)

	var (
		pending []T
		in      = q.in
	)

	for in != nil || len(pending) > 0 {
		var (
			out  chan T
			next T
		)

		if len(pending) > 0 {
			out = q.out
			next = pending[0]
		}

		select {
		case v, ok := <-in:
			if !ok {
				in = nil
				continue
			}

			pending = append(pending, v)
		case out <- next:
			var zero T

			pending[0] = zero
			pending = pending[1:]
		case <-q.released:
			return
		}
	}
}
