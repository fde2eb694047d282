// Package queue provides an unbounded single-producer/single-consumer queue
// built on channels. Push never waits for the consumer, the consumer reads
// from a plain receive channel, and closing the queue is the end-of-stream
// marker delivered after every pending item.
package queue
