// Package integration holds end-to-end tests that run the adapter against an
// emulated DR server and the real alarm receiver.
package integration
