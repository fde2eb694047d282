// Package receiver runs the alarm receiver: a small HTTP server that accepts
// the adapter's notifications and keeps them in SQLite for inspection.
package receiver
