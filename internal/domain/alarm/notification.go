package alarm

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an alarm onset accepted by the receiver.
type Notification struct {
	// ID uniquely identifies the stored notification.
	ID uuid.UUID `json:"id"`
	// Class is the numeric event class.
	Class int `json:"class"`
	// Latitude of the alarm.
	Latitude float64 `json:"lat"`
	// Longitude of the alarm.
	Longitude float64 `json:"lon"`
	// ReceivedAt is when the receiver accepted the notification.
	ReceivedAt time.Time `json:"timestamp"`
}

// NewNotification creates a notification with a fresh id received at now.
func NewNotification(class int, lat, lon float64, now time.Time) *Notification {
	return &Notification{
		ID:         uuid.New(),
		Class:      class,
		Latitude:   lat,
		Longitude:  lon,
		ReceivedAt: now,
	}
}

// Clone returns a copy of the notification to avoid leaking internal references.
func (n *Notification) Clone() *Notification {
	if n == nil {
		return nil
	}

	cloned := *n

	return &cloned
}
