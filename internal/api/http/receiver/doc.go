// Package receiver implements the HTTP API of the alarm receiver: it accepts
// alarm notifications and lists the ones received so far.
package receiver
