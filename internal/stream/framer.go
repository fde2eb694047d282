package stream

import (
	"bufio"
	"bytes"
	"io"
)

// MaxFragmentSize caps the size of one framed object.
const MaxFragmentSize = 4 << 20

const initialBufferSize = 64 << 10

//nolint:gochecknoglobals // Immutable boundary marker.
var boundary = []byte("}{")

// Framer yields the fragments found between "}{" boundaries.
// Fragments are returned without their outer braces.
type Framer struct {
	// scanner drives the split function over the body.
	scanner *bufio.Scanner
	// leadingDropped is set once the first fragment has been discarded.
	leadingDropped bool
}

// NewFramer creates a Framer reading from r.
func NewFramer(r io.Reader) *Framer {
	s := &splitter{first: true}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialBufferSize), MaxFragmentSize)
	scanner.Split(s.split)

	return &Framer{
		scanner: scanner,
	}
}

// Next returns the next interior fragment. The leading fragment of the body
// is always discarded. Zero-length fragments are returned as they are.
// At the end of the body Next returns io.EOF, or the transport error.
func (f *Framer) Next() ([]byte, error) {
	for f.scanner.Scan() {
		if !f.leadingDropped {
			f.leadingDropped = true
			continue
		}

		return f.scanner.Bytes(), nil
	}

	if err := f.scanner.Err(); err != nil {
		return nil, err
	}

	return nil, io.EOF
}

// splitter holds the state of the split function between calls.
type splitter struct {
	// first is true until the leading fragment has been cut.
	first bool
}

// split is a bufio.SplitFunc cutting on "}{".
//
// An opening brace at the very start of the body (after whitespace) counts
// as a boundary, so the leading fragment is empty and the first object is
// kept. A body that starts mid-object yields the partial text as the leading
// fragment. The closing brace of the last object is dropped at end of body.
func (s *splitter) split(data []byte, atEOF bool) (int, []byte, error) {
	if s.first {
		trimmed := bytes.TrimLeft(data, " \t\r\n")
		skipped := len(data) - len(trimmed)

		if len(trimmed) == 0 {
			if atEOF {
				return len(data), nil, nil
			}

			return skipped, nil, nil
		}

		if trimmed[0] == '{' {
			s.first = false

			return skipped + 1, []byte{}, nil
		}
	}

	if i := bytes.Index(data, boundary); i >= 0 {
		s.first = false

		return i + len(boundary), data[:i], nil
	}

	if !atEOF {
		return 0, nil, nil
	}

	if len(data) == 0 {
		return 0, nil, nil
	}

	s.first = false

	tail := bytes.TrimRight(data, " \t\r\n")
	tail = bytes.TrimSuffix(tail, []byte("}"))

	return len(data), tail, nil
}
