package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category is the severity the server assigned to an event.
type Category int

const (
	// CategoryIdle marks an event that needs no attention.
	CategoryIdle Category = 0
	// CategoryWarning marks a suspicious event.
	CategoryWarning Category = 1
	// CategoryAlarm marks an event that must be reported.
	CategoryAlarm Category = 2
)

// String implements fmt.Stringer.
func (c Category) String() string {
	switch c {
	case CategoryIdle:
		return "idle"
	case CategoryWarning:
		return "warning"
	case CategoryAlarm:
		return "alarm"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// DistanceReading is a proximity reading of one sensor platform.
type DistanceReading struct {
	// SensorPlatformID identifies the sensor platform.
	SensorPlatformID *int64 `json:"platform_id"`
	// Distance is the distance from the platform, in server units.
	Distance *float64 `json:"distance"`
}

// Piquet is a location marker attached to an event.
type Piquet struct {
	PlatformID *int64 `json:"platform_id"`
	ObjectID   *int64 `json:"object_id"`
	PiquetID   *int64 `json:"piquet_id"`
}

// Event is one sensor events journal record.
//
// ID is stable across all updates of the same physical occurrence; the
// record carrying EndTime is the terminal update of that occurrence.
type Event struct {
	// ID identifies the tracked physical object.
	ID int64 `json:"id"`
	// InfoRowID is passed through from the server.
	InfoRowID *int64 `json:"info_row_id"`
	// Class is the taxonomy id of the detected activity.
	Class int `json:"event_class"`
	// StartTime is the occurrence start, Unix seconds.
	StartTime *float64 `json:"start_time"`
	// UpdateTime is the last update of the occurrence, Unix seconds.
	UpdateTime *float64 `json:"update_time"`
	// EndTime is set only on the terminal update, Unix seconds.
	EndTime *float64 `json:"end_time"`
	// Category is the event severity.
	Category Category `json:"category"`
	// Action is the handling action; its shape is owned by the server.
	Action json.RawMessage `json:"action"`
	// Latitude of the event, if known.
	Latitude *float64 `json:"latitude"`
	// Longitude of the event, if known.
	Longitude *float64 `json:"longitude"`
	// Distance holds sensor proximity readings.
	Distance []DistanceReading `json:"distance"`
	// Piquet holds location markers.
	Piquet []Piquet `json:"piquet"`
	// Comment is free text; its shape is owned by the server.
	Comment json.RawMessage `json:"comment"`
	// CurrentSpeed is the current object speed, if known.
	CurrentSpeed *float64 `json:"current_speed"`
}

// IsAlarm reports whether the event has the alarm category.
func (e *Event) IsAlarm() bool {
	return e.Category == CategoryAlarm
}

// IsFinished reports whether this is the terminal update of the occurrence.
func (e *Event) IsFinished() bool {
	return e.EndTime != nil
}

// Started returns StartTime as time.Time, or the zero time when absent.
func (e *Event) Started() time.Time {
	return unixToTime(e.StartTime)
}

// Ended returns EndTime as time.Time, or the zero time when absent.
func (e *Event) Ended() time.Time {
	return unixToTime(e.EndTime)
}

func unixToTime(ts *float64) time.Time {
	if ts == nil {
		return time.Time{}
	}

	sec := int64(*ts)
	nsec := int64((*ts - float64(sec)) * float64(time.Second))

	return time.Unix(sec, nsec)
}
