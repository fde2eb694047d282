package subscriber

import "fmt"

// State is the lifecycle state of a Subscriber.
type State int32

const (
	// StateIdle is the state before Start.
	StateIdle State = iota
	// StateConnecting means the stream request is in flight.
	StateConnecting
	// StateStreaming means events are being read.
	StateStreaming
	// StateStopped means the subscriber was asked to stop.
	StateStopped
	// StateFailed means the connection could not be opened or broke.
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether the subscriber can no longer produce events.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateFailed
}
