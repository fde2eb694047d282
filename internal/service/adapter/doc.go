// Package adapter runs one subscription session: it reads the DR server event
// stream and forwards alarm onsets of the configured classes to the sink.
package adapter
