// Package health exposes the subscriber liveness over the standard gRPC health protocol.
package health
