// Package version exposes build metadata for the adapter binaries.
//
// Version, Commit and BuildTime are injected at build time via ldflags.
// UserAgent is sent with every outgoing HTTP request.
package version
