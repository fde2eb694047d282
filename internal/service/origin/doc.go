// Package origin is the HTTP client of the DR server.
//
// Dial checks that the server is reachable and accepts the credentials;
// Subscribe opens the long-lived events stream.
package origin
