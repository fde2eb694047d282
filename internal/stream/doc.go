// Package stream splits the DR server subscription body into event batches.
//
// The server writes complete JSON objects back to back without a delimiter:
//
//	{"events":[...]}{"events":[...]}{}{"events":[...]}
//
// Framer cuts the body on the literal "}{" boundary and Decoder restores the
// braces around every fragment before decoding it. A "}{" inside a string
// value splits the object falsely; such fragments surface as decode errors.
package stream
