package stream

import (
	"io"

	"github.com/oshokin/dronpoint-adapter/internal/domain/event"
)

// Decoder turns a framed body into event batches.
type Decoder struct {
	// framer cuts the body into fragments.
	framer *Framer
	// buf is reused to re-wrap fragments.
	buf []byte
}

// NewDecoder creates a Decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		framer: NewFramer(r),
	}
}

// Next returns the events of the next non-empty fragment.
//
// Heartbeat fragments are skipped. A fragment that is not valid JSON yields
// a *event.DecodeError; the caller may keep calling Next afterwards.
// At the end of the body Next returns io.EOF or the transport error.
func (d *Decoder) Next() ([]event.Event, error) {
	for {
		fragment, err := d.framer.Next()
		if err != nil {
			return nil, err
		}

		if len(fragment) == 0 {
			continue
		}

		d.buf = append(d.buf[:0], '{')
		d.buf = append(d.buf, fragment...)
		d.buf = append(d.buf, '}')

		return event.ParseEvents(d.buf)
	}
}
