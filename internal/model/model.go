// Package model defines the core domain types for the slot reservation system.
package model

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout and TimeLayout are the wire formats for a slot's calendar date
// and start time.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// SlotStatus is the lifecycle state of a slot.
type SlotStatus string

const (
	SlotOpen      SlotStatus = "OPEN"
	SlotFull      SlotStatus = "FULL"
	SlotCancelled SlotStatus = "CANCELLED"
	SlotClosed    SlotStatus = "CLOSED"
)

// BookingStatus is the state of a booking. CANCELLED is terminal.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// WaitlistStatus is the state of a waitlist entry. PROMOTED is terminal.
type WaitlistStatus string

const (
	WaitlistWaiting  WaitlistStatus = "WAITING"
	WaitlistPromoted WaitlistStatus = "PROMOTED"
)

// Slot is a bookable, capacity-limited, time-boxed resource owned by a center.
type Slot struct {
	ID             uuid.UUID  `json:"id"`
	CenterID       int64      `json:"center_id"`
	Date           time.Time  `json:"date"`
	StartTime      string     `json:"start_time"`
	Capacity       int        `json:"capacity"`
	SeatsRemaining int        `json:"seats_remaining"`
	Status         SlotStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewSlot returns an OPEN slot with every seat free.
func NewSlot(centerID int64, date time.Time, startTime string, capacity int, now time.Time) Slot {
	return Slot{
		ID:             uuid.New(),
		CenterID:       centerID,
		Date:           TruncateDate(date),
		StartTime:      startTime,
		Capacity:       capacity,
		SeatsRemaining: capacity,
		Status:         SlotOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Booked returns the number of seats currently held.
func (s *Slot) Booked() int {
	return s.Capacity - s.SeatsRemaining
}

// Bookable reports whether the slot accepts bookings or waitlist entries.
func (s *Slot) Bookable() bool {
	return s.Status != SlotCancelled && s.Status != SlotClosed
}

// TakeSeat consumes one seat. It returns false without mutating when no seat
// is left. Taking the last seat of an OPEN slot marks it FULL.
func (s *Slot) TakeSeat(now time.Time) bool {
	if s.SeatsRemaining <= 0 {
		return false
	}
	s.SeatsRemaining--
	if s.SeatsRemaining == 0 && s.Status == SlotOpen {
		s.Status = SlotFull
	}
	s.UpdatedAt = now
	return true
}

// ReleaseSeat returns one seat. It returns false without mutating when every
// seat is already free, which means the seat count and the ledger disagree.
// A FULL slot that regains a seat becomes OPEN again.
func (s *Slot) ReleaseSeat(now time.Time) bool {
	if s.SeatsRemaining >= s.Capacity {
		return false
	}
	s.SeatsRemaining++
	if s.Status == SlotFull {
		s.Status = SlotOpen
	}
	s.UpdatedAt = now
	return true
}

// Booking is a user's claim on one seat of a slot.
type Booking struct {
	ID        uuid.UUID     `json:"id"`
	UserID    int64         `json:"user_id"`
	SlotID    uuid.UUID     `json:"slot_id"`
	CenterID  int64         `json:"center_id"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewConfirmedBooking returns a CONFIRMED booking for userID on slot.
func NewConfirmedBooking(userID int64, slot *Slot, now time.Time) Booking {
	return Booking{
		ID:        uuid.New(),
		UserID:    userID,
		SlotID:    slot.ID,
		CenterID:  slot.CenterID,
		Status:    BookingConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WaitlistEntry is a queued request for a seat on a full slot. Entries are
// served in (QueuedAt, Seq) order; Seq is assigned by the store on insert.
type WaitlistEntry struct {
	ID       uuid.UUID      `json:"id"`
	UserID   int64          `json:"user_id"`
	SlotID   uuid.UUID      `json:"slot_id"`
	Status   WaitlistStatus `json:"status"`
	QueuedAt time.Time      `json:"queued_at"`
	Seq      int64          `json:"-"`
}

// NewWaitlistEntry returns a WAITING entry queued at now.
func NewWaitlistEntry(userID int64, slotID uuid.UUID, now time.Time) WaitlistEntry {
	return WaitlistEntry{
		ID:       uuid.New(),
		UserID:   userID,
		SlotID:   slotID,
		Status:   WaitlistWaiting,
		QueuedAt: now,
	}
}

// Before reports whether e is ahead of other in FIFO order.
func (e *WaitlistEntry) Before(other *WaitlistEntry) bool {
	if !e.QueuedAt.Equal(other.QueuedAt) {
		return e.QueuedAt.Before(other.QueuedAt)
	}
	return e.Seq < other.Seq
}

// Outcome is the kind of result a booking attempt produced.
type Outcome string

const (
	OutcomeConfirmed  Outcome = "CONFIRMED"
	OutcomeWaitlisted Outcome = "WAITLISTED"
	OutcomeFailure    Outcome = "FAILURE"
)

// BookingResult summarises the outcome of a single booking attempt.
type BookingResult struct {
	Outcome   Outcome    `json:"outcome"`
	BookingID *uuid.UUID `json:"booking_id,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// Availability is a read-only view of a slot's occupancy.
type Availability struct {
	SlotID        uuid.UUID  `json:"slot_id"`
	Status        SlotStatus `json:"status"`
	Capacity      int        `json:"capacity"`
	Booked        int        `json:"booked"`
	Remaining     int        `json:"remaining"`
	WaitlistCount int        `json:"waitlist_count"`
}

// SlotAudit compares a slot's seat counter with its confirmed bookings.
type SlotAudit struct {
	SlotID         uuid.UUID `json:"slot_id"`
	Capacity       int       `json:"capacity"`
	SeatsRemaining int       `json:"seats_remaining"`
	Confirmed      int       `json:"confirmed"`
	Consistent     bool      `json:"consistent"`
}

// CreateSlotRequest is the payload for creating a new slot.
type CreateSlotRequest struct {
	CenterID  int64  `json:"center_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	Capacity  int    `json:"capacity"`
}

// UpdateSlotStatusRequest is the payload for changing a slot's lifecycle status.
type UpdateSlotStatusRequest struct {
	Status SlotStatus `json:"status"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// TruncateDate drops the clock part of t, keeping the calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
