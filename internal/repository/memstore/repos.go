package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/slot-booking/internal/model"
	"github.com/Shivanand-hulikatti/slot-booking/internal/repository"
	"github.com/google/uuid"
)

type slotRepo struct{ u *unit }

func (r slotRepo) Create(_ context.Context, slot *model.Slot) error {
	u := r.u
	if u.direct {
		u.store.mu.Lock()
		defer u.store.mu.Unlock()
		if u.store.slotTakenLocked(*slot) {
			return repository.ErrSlotExists
		}
		u.store.slots[slot.ID] = *slot
		return nil
	}
	u.mu.Lock()
	u.slots[slot.ID] = *slot
	u.created = append(u.created, *slot)
	u.mu.Unlock()
	return nil
}

func (r slotRepo) Get(_ context.Context, id uuid.UUID) (*model.Slot, error) {
	slot, ok := r.u.getSlot(id)
	if !ok {
		return nil, repository.ErrSlotNotFound
	}
	return &slot, nil
}

func (r slotRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	if err := r.u.lock(ctx, id); err != nil {
		return nil, fmt.Errorf("acquire slot %s: %w", id, err)
	}
	return r.Get(ctx, id)
}

func (r slotRepo) Save(_ context.Context, slot *model.Slot) error {
	if _, ok := r.u.getSlot(slot.ID); !ok {
		return repository.ErrSlotNotFound
	}
	r.u.putSlot(*slot)
	return nil
}

func (r slotRepo) FindByCenterDateTime(_ context.Context, centerID int64, date time.Time, startTime string) (*model.Slot, error) {
	u := r.u
	u.store.mu.RLock()
	candidates := make(map[uuid.UUID]model.Slot)
	for id, s := range u.store.slots {
		candidates[id] = s
	}
	u.store.mu.RUnlock()

	u.mu.Lock()
	for id, s := range u.slots {
		candidates[id] = s
	}
	u.mu.Unlock()

	for _, s := range candidates {
		if s.CenterID == centerID && sameSlotTime(s, date, startTime) {
			slot := s
			return &slot, nil
		}
	}
	return nil, repository.ErrSlotNotFound
}

type bookingRepo struct{ u *unit }

func (r bookingRepo) Create(_ context.Context, b *model.Booking) error {
	r.u.putBooking(*b)
	return nil
}

func (r bookingRepo) Get(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	b, ok := r.u.getBooking(id)
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return &b, nil
}

func (r bookingRepo) Save(_ context.Context, b *model.Booking) error {
	if _, ok := r.u.getBooking(b.ID); !ok {
		return repository.ErrBookingNotFound
	}
	r.u.putBooking(*b)
	return nil
}

func (r bookingRepo) FindOverlapping(_ context.Context, userID int64, date time.Time, startTime string) (model.Booking, bool, error) {
	for _, b := range r.u.allBookings() {
		if b.UserID != userID || b.Status != model.BookingConfirmed {
			continue
		}
		slot, ok := r.u.getSlot(b.SlotID)
		if ok && sameSlotTime(slot, date, startTime) {
			return b, true, nil
		}
	}
	return model.Booking{}, false, nil
}

func (r bookingRepo) FindByUserAndDate(_ context.Context, userID int64, date time.Time) ([]model.Booking, error) {
	day := model.TruncateDate(date)
	var out []model.Booking
	for _, b := range r.u.allBookings() {
		if b.UserID != userID {
			continue
		}
		slot, ok := r.u.getSlot(b.SlotID)
		if ok && slot.Date.Equal(day) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r bookingRepo) CountConfirmedBySlot(_ context.Context, slotID uuid.UUID) (int, error) {
	n := 0
	for _, b := range r.u.allBookings() {
		if b.SlotID == slotID && b.Status == model.BookingConfirmed {
			n++
		}
	}
	return n, nil
}

type waitlistRepo struct{ u *unit }

func (r waitlistRepo) Create(_ context.Context, e *model.WaitlistEntry) error {
	e.Seq = r.u.store.seq.Add(1)
	r.u.putWaitlist(*e)
	return nil
}

func (r waitlistRepo) Save(_ context.Context, e *model.WaitlistEntry) error {
	r.u.putWaitlist(*e)
	return nil
}

func (r waitlistRepo) FindWaitingBySlot(_ context.Context, slotID uuid.UUID) ([]model.WaitlistEntry, error) {
	return r.u.waitingFor(slotID), nil
}

func (r waitlistRepo) FindWaitingBySlotAndUser(_ context.Context, slotID uuid.UUID, userID int64) (model.WaitlistEntry, bool, error) {
	for _, e := range r.u.waitingFor(slotID) {
		if e.UserID == userID {
			return e, true, nil
		}
	}
	return model.WaitlistEntry{}, false, nil
}

func (r waitlistRepo) CountWaitingBySlot(_ context.Context, slotID uuid.UUID) (int, error) {
	return len(r.u.waitingFor(slotID)), nil
}

type userLocker struct{ u *unit }

func (r userLocker) Lock(ctx context.Context, userID int64) error {
	return r.u.lockUser(ctx, userID)
}
