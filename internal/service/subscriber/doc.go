// Package subscriber reads the DR server events stream in its own goroutine
// and publishes every decoded event onto an unbounded queue.
//
// The subscriber moves through Idle, Connecting, Streaming and ends in
// either Stopped (asked to stop) or Failed (the stream broke). Whatever the
// reason, the queue is closed when the goroutine exits so a consumer parked
// on it always wakes up.
package subscriber
