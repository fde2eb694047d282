// Package event contains the sensor event record reported by the DR server
// together with the JSON decoding of one `{"events":[...]}` stream object.
//
// Records are plain values: optional fields are pointers that stay nil when
// the server omits them, and nothing is mutated after decoding.
package event
