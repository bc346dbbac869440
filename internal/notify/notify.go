// Package notify publishes reservation events once the unit of work that
// produced them has committed.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names what happened to a booking.
type EventType string

const (
	// EventPromoted: a waitlisted user received a confirmed booking.
	EventPromoted EventType = "booking.promoted"
	// EventCancelled: the owner cancelled a booking.
	EventCancelled EventType = "booking.cancelled"
	// EventReplaced: a booking was cancelled because its owner booked
	// another slot at the same date and time.
	EventReplaced EventType = "booking.replaced"
)

// Event is one committed state change worth telling the user about.
type Event struct {
	Type      EventType `json:"type"`
	SlotID    uuid.UUID `json:"slot_id"`
	BookingID uuid.UUID `json:"booking_id"`
	UserID    int64     `json:"user_id"`
	At        time.Time `json:"at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) error { return nil }
