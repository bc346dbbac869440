package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/slot-booking/internal/model"
	"github.com/Shivanand-hulikatti/slot-booking/internal/notify"
	"github.com/Shivanand-hulikatti/slot-booking/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxSlotCapacity = 10_000

// SlotService administers slots: creation, lifecycle status and seat audits.
type SlotService struct {
	deps
	tx       repository.TxManager
	waitlist *waitlistQueue
}

// NewSlotService constructs a SlotService over tx.
func NewSlotService(tx repository.TxManager, opts ...Option) *SlotService {
	d := newDeps("slots", opts)
	ledger := &bookingLedger{now: d.now}
	return &SlotService{
		deps:     d,
		tx:       tx,
		waitlist: &waitlistQueue{now: d.now, ledger: ledger, log: d.log},
	}
}

// CreateSlot validates the request and stores an OPEN slot with all seats free.
func (s *SlotService) CreateSlot(ctx context.Context, req model.CreateSlotRequest) (*model.Slot, error) {
	if req.CenterID <= 0 {
		return nil, fmt.Errorf("%w: center_id must be positive", repository.ErrInvalidInput)
	}
	date, err := ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	startTime, err := NormalizeSlotTime(req.StartTime)
	if err != nil {
		return nil, err
	}
	if req.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be a positive integer", repository.ErrInvalidInput)
	}
	if req.Capacity > maxSlotCapacity {
		return nil, fmt.Errorf("%w: capacity cannot exceed 10,000", repository.ErrInvalidInput)
	}

	slot := model.NewSlot(req.CenterID, date, startTime, req.Capacity, s.now())
	if err := s.tx.Repos().Slots.Create(ctx, &slot); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"slot_id":   slot.ID,
		"center_id": slot.CenterID,
		"capacity":  slot.Capacity,
	}).Info("slot created")
	return &slot, nil
}

// GetSlot returns a single slot by ID.
func (s *SlotService) GetSlot(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	return s.tx.Repos().Slots.Get(ctx, id)
}

// SetStatus moves a slot to CLOSED, CANCELLED or back to OPEN under its lock.
// CANCELLED is terminal. Re-opening a CLOSED slot derives OPEN or FULL from
// its seat count and promotes waiters into any free seats. FULL is never set
// directly.
func (s *SlotService) SetStatus(ctx context.Context, id uuid.UUID, status model.SlotStatus) (*model.Slot, error) {
	switch status {
	case model.SlotOpen, model.SlotClosed, model.SlotCancelled:
	default:
		return nil, fmt.Errorf("%w: status must be OPEN, CLOSED or CANCELLED", repository.ErrInvalidInput)
	}

	var (
		updated model.Slot
		events  []notify.Event
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		events = nil
		slot, err := repos.Slots.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if slot.Status == model.SlotCancelled && status != model.SlotCancelled {
			return fmt.Errorf("%w: cancelled slot cannot change status", repository.ErrInvalidInput)
		}

		next := status
		if status == model.SlotOpen {
			if slot.Status != model.SlotClosed {
				updated = *slot
				return nil
			}
			if slot.SeatsRemaining == 0 {
				next = model.SlotFull
			}
		}
		slot.Status = next
		slot.UpdatedAt = s.now()
		if err := repos.Slots.Save(ctx, slot); err != nil {
			return fmt.Errorf("save slot: %w", err)
		}

		for slot.Status == model.SlotOpen {
			promoted, err := s.waitlist.promote(ctx, repos, slot)
			if err != nil {
				return err
			}
			if promoted == nil {
				break
			}
			events = append(events, *promoted)
		}
		updated = *slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	s.log.WithFields(logrus.Fields{"slot_id": id, "status": updated.Status}).Info("slot status changed")
	return &updated, nil
}

// Audit compares the slot's seat counter with its confirmed bookings. The
// slot is locked while counting so the comparison is exact.
func (s *SlotService) Audit(ctx context.Context, id uuid.UUID) (*model.SlotAudit, error) {
	var audit model.SlotAudit
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		slot, err := repos.Slots.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		confirmed, err := repos.Bookings.CountConfirmedBySlot(ctx, id)
		if err != nil {
			return err
		}
		audit = model.SlotAudit{
			SlotID:         slot.ID,
			Capacity:       slot.Capacity,
			SeatsRemaining: slot.SeatsRemaining,
			Confirmed:      confirmed,
			Consistent: slot.SeatsRemaining >= 0 &&
				slot.SeatsRemaining <= slot.Capacity &&
				slot.SeatsRemaining == slot.Capacity-confirmed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !audit.Consistent {
		s.log.WithFields(logrus.Fields{
			"slot_id":         id,
			"seats_remaining": audit.SeatsRemaining,
			"confirmed":       audit.Confirmed,
		}).Error("seat accounting mismatch")
	}
	return &audit, nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(v string) (time.Time, error) {
	d, err := time.Parse(model.DateLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", repository.ErrInvalidInput)
	}
	return d, nil
}

// NormalizeSlotTime parses an HH:MM start time and returns it zero-padded.
func NormalizeSlotTime(v string) (string, error) {
	t, err := time.Parse(model.TimeLayout, strings.TrimSpace(v))
	if err != nil {
		return "", fmt.Errorf("%w: start_time must be HH:MM", repository.ErrInvalidInput)
	}
	return t.Format(model.TimeLayout), nil
}

// IsBusinessError reports whether err is an expected negative outcome rather
// than an infrastructure fault.
func IsBusinessError(err error) bool {
	return errors.Is(err, repository.ErrSlotNotFound) ||
		errors.Is(err, repository.ErrBookingNotFound) ||
		errors.Is(err, repository.ErrUnauthorized) ||
		errors.Is(err, repository.ErrAlreadyCancelled) ||
		errors.Is(err, repository.ErrSlotUnavailable) ||
		errors.Is(err, repository.ErrSlotExists) ||
		errors.Is(err, repository.ErrInvalidInput)
}
