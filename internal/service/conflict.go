package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/slot-booking/internal/metrics"
	"github.com/Shivanand-hulikatti/slot-booking/internal/model"
	"github.com/Shivanand-hulikatti/slot-booking/internal/notify"
	"github.com/Shivanand-hulikatti/slot-booking/internal/repository"
	"github.com/sirupsen/logrus"
)

// conflictResolver enforces one confirmed booking per user per date and start
// time, across all centers.
type conflictResolver struct {
	now      func() time.Time
	ledger   *bookingLedger
	waitlist *waitlistQueue
	log      *logrus.Entry
}

// find looks up the booking a new booking on target would replace. It runs
// before any lock is taken so its slot can join the ordered lock set.
func (r *conflictResolver) find(ctx context.Context, repos repository.Repositories, userID int64, target *model.Slot) (model.Booking, bool, error) {
	b, ok, err := repos.Bookings.FindOverlapping(ctx, userID, target.Date, target.StartTime)
	if err != nil {
		return model.Booking{}, false, fmt.Errorf("find conflicting booking: %w", err)
	}
	return b, ok, nil
}

// resolve cancels the conflicting booking, returns its seat and offers that
// seat to the slot's waitlist. slot must be the locked copy of the booking's
// slot. A booking that stopped being CONFIRMED between find and the lock is
// left alone.
func (r *conflictResolver) resolve(ctx context.Context, repos repository.Repositories, conflict model.Booking, slot *model.Slot) ([]notify.Event, error) {
	b, err := repos.Bookings.Get(ctx, conflict.ID)
	if err != nil {
		return nil, fmt.Errorf("reload conflicting booking: %w", err)
	}
	if b.Status != model.BookingConfirmed {
		return nil, nil
	}

	if err := r.ledger.cancel(ctx, repos, b); err != nil {
		return nil, err
	}
	now := r.now()
	releaseSeat(r.log, slot, b.ID, now)
	if err := repos.Slots.Save(ctx, slot); err != nil {
		return nil, fmt.Errorf("save slot: %w", err)
	}

	metrics.TrackConflictResolved()
	r.log.WithFields(logrus.Fields{
		"user_id":    b.UserID,
		"booking_id": b.ID,
		"slot_id":    slot.ID,
	}).Info("conflicting booking cancelled")

	events := []notify.Event{{
		Type:      notify.EventReplaced,
		SlotID:    slot.ID,
		BookingID: b.ID,
		UserID:    b.UserID,
		At:        now,
	}}

	promoted, err := r.waitlist.promote(ctx, repos, slot)
	if err != nil {
		return nil, err
	}
	if promoted != nil {
		events = append(events, *promoted)
	}
	return events, nil
}
