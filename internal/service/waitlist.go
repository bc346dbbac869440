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

// waitlistQueue is the FIFO of users waiting for a seat on a full slot.
type waitlistQueue struct {
	now    func() time.Time
	ledger *bookingLedger
	log    *logrus.Entry
}

// enqueue adds userID to the slot's queue. A user already WAITING on the slot
// keeps their original place.
func (q *waitlistQueue) enqueue(ctx context.Context, repos repository.Repositories, userID int64, slot *model.Slot) (*model.WaitlistEntry, error) {
	existing, ok, err := repos.Waitlist.FindWaitingBySlotAndUser(ctx, slot.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("check waitlist: %w", err)
	}
	if ok {
		return &existing, nil
	}

	entry := model.NewWaitlistEntry(userID, slot.ID, q.now())
	if err := repos.Waitlist.Create(ctx, &entry); err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}
	return &entry, nil
}

// promote hands one free seat of slot to the head of its queue. The caller
// must hold slot exclusively and pass the locked copy, which is updated in
// place. It returns nil when nobody waits or the seat is already gone; the
// latter means another operation consumed it first and is not an error.
// CANCELLED and CLOSED slots promote nobody; their waiters stay WAITING.
func (q *waitlistQueue) promote(ctx context.Context, repos repository.Repositories, slot *model.Slot) (*notify.Event, error) {
	if !slot.Bookable() {
		return nil, nil
	}
	waiting, err := repos.Waitlist.FindWaitingBySlot(ctx, slot.ID)
	if err != nil {
		return nil, fmt.Errorf("load waitlist: %w", err)
	}
	if len(waiting) == 0 {
		return nil, nil
	}
	head := waiting[0]

	now := q.now()
	if !slot.TakeSeat(now) {
		q.log.WithField("slot_id", slot.ID).Debug("promotion skipped, no seat left")
		return nil, nil
	}
	if err := repos.Slots.Save(ctx, slot); err != nil {
		return nil, fmt.Errorf("save slot: %w", err)
	}

	booking, err := q.ledger.confirm(ctx, repos, head.UserID, slot)
	if err != nil {
		return nil, err
	}

	head.Status = model.WaitlistPromoted
	if err := repos.Waitlist.Save(ctx, &head); err != nil {
		return nil, fmt.Errorf("mark promoted: %w", err)
	}

	metrics.TrackPromotion()
	q.log.WithFields(logrus.Fields{
		"slot_id":    slot.ID,
		"user_id":    head.UserID,
		"booking_id": booking.ID,
	}).Info("waitlist entry promoted")

	return &notify.Event{
		Type:      notify.EventPromoted,
		SlotID:    slot.ID,
		BookingID: booking.ID,
		UserID:    head.UserID,
		At:        now,
	}, nil
}
