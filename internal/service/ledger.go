package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/slot-booking/internal/model"
	"github.com/Shivanand-hulikatti/slot-booking/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// bookingLedger records confirmed and cancelled bookings. It never touches
// seat counters; callers hold the slot lock and adjust the slot themselves.
type bookingLedger struct {
	now func() time.Time
}

// confirm records a CONFIRMED booking for userID on slot.
func (l *bookingLedger) confirm(ctx context.Context, repos repository.Repositories, userID int64, slot *model.Slot) (*model.Booking, error) {
	b := model.NewConfirmedBooking(userID, slot, l.now())
	if err := repos.Bookings.Create(ctx, &b); err != nil {
		return nil, fmt.Errorf("confirm booking: %w", err)
	}
	return &b, nil
}

// cancelOwned cancels b on behalf of userID. Ownership and idempotency are
// checked before anything is written.
func (l *bookingLedger) cancelOwned(ctx context.Context, repos repository.Repositories, b *model.Booking, userID int64) error {
	if b.UserID != userID {
		return repository.ErrUnauthorized
	}
	return l.cancel(ctx, repos, b)
}

func (l *bookingLedger) cancel(ctx context.Context, repos repository.Repositories, b *model.Booking) error {
	if b.Status == model.BookingCancelled {
		return repository.ErrAlreadyCancelled
	}
	b.Status = model.BookingCancelled
	b.UpdatedAt = l.now()
	if err := repos.Bookings.Save(ctx, b); err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	return nil
}

// releaseSeat returns the seat held by bookingID to slot. A slot that already
// has every seat free is left as is and the mismatch is logged.
func releaseSeat(log *logrus.Entry, slot *model.Slot, bookingID uuid.UUID, now time.Time) {
	if slot.ReleaseSeat(now) {
		return
	}
	log.WithFields(logrus.Fields{
		"slot_id":         slot.ID,
		"booking_id":      bookingID,
		"seats_remaining": slot.SeatsRemaining,
		"capacity":        slot.Capacity,
	}).Error("seat release ignored, slot already at capacity")
}
