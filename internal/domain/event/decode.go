package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDecode is matched by every *DecodeError.
var ErrDecode = errors.New("decode events")

// DecodeError reports a stream object that is not valid JSON.
type DecodeError struct {
	// Raw is the offending text as it was fed to the decoder.
	Raw string
	// Err is the underlying JSON error.
	Err error
}

// Error implements error.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode events: %v", e.Err)
}

// Unwrap returns the underlying JSON error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDecode) true for any DecodeError.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// envelope is the shape of one stream object.
type envelope struct {
	Events []Event `json:"events"`
}

// ParseEvents decodes one `{"events":[...]}` object.
// A missing "events" key yields no events and no error.
func ParseEvents(data []byte) ([]Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{
			Raw: string(data),
			Err: err,
		}
	}

	return env.Events, nil
}
