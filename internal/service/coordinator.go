package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/slot-booking/internal/metrics"
	"github.com/Shivanand-hulikatti/slot-booking/internal/model"
	"github.com/Shivanand-hulikatti/slot-booking/internal/notify"
	"github.com/Shivanand-hulikatti/slot-booking/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Book claims a seat on slotID for userID as one unit of work.
//
//   - Any other CONFIRMED booking the user holds at the same date and time is
//     cancelled first and its seat offered to that slot's waitlist.
//   - A free seat yields OutcomeConfirmed with the new booking's ID.
//   - A full slot yields OutcomeWaitlisted.
//   - A CANCELLED or CLOSED slot yields OutcomeFailure together with
//     repository.ErrSlotUnavailable, and nothing is written.
//
// A missing slot returns repository.ErrSlotNotFound.
func (c *Coordinator) Book(ctx context.Context, userID int64, slotID uuid.UUID) (model.BookingResult, error) {
	if userID <= 0 {
		return model.BookingResult{}, fmt.Errorf("%w: user id must be positive", repository.ErrInvalidInput)
	}

	var (
		result model.BookingResult
		events []notify.Event
	)
	err := c.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		result, events = model.BookingResult{}, nil

		// The user lock comes before any slot lock. It keeps two bookings by
		// the same user from both missing each other's conflict.
		if err := repos.Users.Lock(ctx, userID); err != nil {
			return err
		}

		// Date and start time never change, so the unlocked read is enough
		// to find a conflicting booking before choosing the lock order.
		target, err := repos.Slots.Get(ctx, slotID)
		if err != nil {
			return err
		}
		conflict, hasConflict, err := c.conflicts.find(ctx, repos, userID, target)
		if err != nil {
			return err
		}

		lockIDs := []uuid.UUID{slotID}
		if hasConflict {
			lockIDs = append(lockIDs, conflict.SlotID)
		}
		start := time.Now()
		locked, err := repository.LockSlots(ctx, repos.Slots, lockIDs...)
		metrics.TrackLockWait("book", time.Since(start))
		if err != nil {
			return err
		}
		slot := locked[slotID]

		if !slot.Bookable() {
			result = model.BookingResult{Outcome: model.OutcomeFailure, Reason: repository.ErrSlotUnavailable.Error()}
			return nil
		}

		if hasConflict {
			resolved, err := c.conflicts.resolve(ctx, repos, conflict, locked[conflict.SlotID])
			if err != nil {
				return err
			}
			events = append(events, resolved...)
		}

		if slot.TakeSeat(c.now()) {
			if err := repos.Slots.Save(ctx, slot); err != nil {
				return fmt.Errorf("save slot: %w", err)
			}
			booking, err := c.ledger.confirm(ctx, repos, userID, slot)
			if err != nil {
				return err
			}
			result = model.BookingResult{Outcome: model.OutcomeConfirmed, BookingID: &booking.ID}
			return nil
		}

		if _, err := c.waitlist.enqueue(ctx, repos, userID, slot); err != nil {
			return err
		}
		result = model.BookingResult{Outcome: model.OutcomeWaitlisted, Reason: "slot full, added to waitlist"}
		return nil
	})
	if err != nil {
		return model.BookingResult{}, err
	}

	c.publish(ctx, events)
	metrics.TrackBooking(string(result.Outcome))
	entry := c.log.WithFields(logrus.Fields{
		"user_id": userID,
		"slot_id": slotID,
		"outcome": result.Outcome,
	})
	if result.BookingID != nil {
		entry = entry.WithField("booking_id", *result.BookingID)
	}
	entry.Info("booking attempt finished")

	if result.Outcome == model.OutcomeFailure {
		return result, repository.ErrSlotUnavailable
	}
	return result, nil
}

// Cancel cancels bookingID on behalf of userID, returns the seat and promotes
// the head of the slot's waitlist within the same unit of work.
//
// It returns repository.ErrBookingNotFound, ErrUnauthorized when userID does
// not own the booking, or ErrAlreadyCancelled; none of these writes anything.
func (c *Coordinator) Cancel(ctx context.Context, bookingID uuid.UUID, userID int64) error {
	var events []notify.Event
	err := c.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		events = nil

		b, err := repos.Bookings.Get(ctx, bookingID)
		if err != nil {
			return err
		}

		// Every status change of a booking happens under its slot's lock, so
		// the re-read below cannot race another cancellation.
		start := time.Now()
		locked, err := repository.LockSlots(ctx, repos.Slots, b.SlotID)
		metrics.TrackLockWait("cancel", time.Since(start))
		if err != nil {
			return fmt.Errorf("lock booking slot: %w", err)
		}
		slot := locked[b.SlotID]

		if b, err = repos.Bookings.Get(ctx, bookingID); err != nil {
			return err
		}
		if err := c.ledger.cancelOwned(ctx, repos, b, userID); err != nil {
			return err
		}

		now := c.now()
		releaseSeat(c.log, slot, b.ID, now)
		if err := repos.Slots.Save(ctx, slot); err != nil {
			return fmt.Errorf("save slot: %w", err)
		}
		events = append(events, notify.Event{
			Type:      notify.EventCancelled,
			SlotID:    slot.ID,
			BookingID: b.ID,
			UserID:    b.UserID,
			At:        now,
		})

		promoted, err := c.waitlist.promote(ctx, repos, slot)
		if err != nil {
			return err
		}
		if promoted != nil {
			events = append(events, *promoted)
		}
		return nil
	})

	metrics.TrackCancel(cancelResult(err))
	if err != nil {
		return err
	}

	c.publish(ctx, events)
	c.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"booking_id": bookingID,
		"promoted":   len(events) > 1,
	}).Info("booking cancelled")
	return nil
}

func cancelResult(err error) string {
	switch {
	case err == nil:
		return "cancelled"
	case errors.Is(err, repository.ErrBookingNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, repository.ErrAlreadyCancelled):
		return "already_cancelled"
	default:
		return "error"
	}
}

// GetAvailability reports the occupancy of the slot a center runs at date and
// startTime. It takes no lock and may observe another operation mid-flight.
func (c *Coordinator) GetAvailability(ctx context.Context, centerID int64, date time.Time, startTime string) (*model.Availability, error) {
	startTime, err := NormalizeSlotTime(startTime)
	if err != nil {
		return nil, err
	}
	repos := c.tx.Repos()
	slot, err := repos.Slots.FindByCenterDateTime(ctx, centerID, model.TruncateDate(date), startTime)
	if err != nil {
		return nil, err
	}
	waiting, err := repos.Waitlist.CountWaitingBySlot(ctx, slot.ID)
	if err != nil {
		return nil, fmt.Errorf("count waitlist: %w", err)
	}
	return &model.Availability{
		SlotID:        slot.ID,
		Status:        slot.Status,
		Capacity:      slot.Capacity,
		Booked:        slot.Booked(),
		Remaining:     slot.SeatsRemaining,
		WaitlistCount: waiting,
	}, nil
}

// GetUserBookings returns every booking, in any status, the user holds on
// slots dated date.
func (c *Coordinator) GetUserBookings(ctx context.Context, userID int64, date time.Time) ([]model.Booking, error) {
	bookings, err := c.tx.Repos().Bookings.FindByUserAndDate(ctx, userID, model.TruncateDate(date))
	if err != nil {
		return nil, fmt.Errorf("get user bookings: %w", err)
	}
	return bookings, nil
}
