// Package memstore is an in-process implementation of the repository
// contract. A unit of work holds a mutex per locked slot or user until it ends, stages
// its writes privately and applies them to the shared maps in one step on
// commit. It backs single-node deployments without PostgreSQL and the service
// tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Shivanand-hulikatti/slot-booking/internal/model"
	"github.com/Shivanand-hulikatti/slot-booking/internal/repository"
	"github.com/google/uuid"
)

// Store holds committed state.
type Store struct {
	mu       sync.RWMutex
	slots    map[uuid.UUID]model.Slot
	bookings map[uuid.UUID]model.Booking
	waitlist map[uuid.UUID]model.WaitlistEntry

	seq       atomic.Int64
	locks     *keyedLocks[uuid.UUID]
	userLocks *keyedLocks[int64]
}

var _ repository.TxManager = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		slots:    make(map[uuid.UUID]model.Slot),
		bookings: make(map[uuid.UUID]model.Booking),
		waitlist: make(map[uuid.UUID]model.WaitlistEntry),
		locks:     newKeyedLocks[uuid.UUID](),
		userLocks: newKeyedLocks[int64](),
	}
}

// WithTx runs fn as one unit of work. Slot and user locks are released on every exit
// path, including a panic in fn; staged writes are applied only when fn
// returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	u := s.newUnit(false)
	defer u.releaseAll()

	if err := fn(ctx, u.repos()); err != nil {
		return err
	}
	return u.commit()
}

// Repos returns repositories that read committed state and write through
// immediately. GetForUpdate takes no lock on them.
func (s *Store) Repos() repository.Repositories {
	return s.newUnit(true).repos()
}

// HeldLocks reports how many slots and users are currently locked or awaited.
func (s *Store) HeldLocks() int {
	return s.locks.size() + s.userLocks.size()
}

// unit is one unit of work over the store. In direct mode writes skip the
// staging maps and land in the store at once.
type unit struct {
	store  *Store
	direct bool

	mu           sync.Mutex
	releases     map[uuid.UUID]func()
	userReleases map[int64]func()
	slots    map[uuid.UUID]model.Slot
	bookings map[uuid.UUID]model.Booking
	waitlist map[uuid.UUID]model.WaitlistEntry
	created  []model.Slot
}

func (s *Store) newUnit(direct bool) *unit {
	return &unit{
		store:        s,
		direct:       direct,
		releases:     make(map[uuid.UUID]func()),
		userReleases: make(map[int64]func()),
		slots:        make(map[uuid.UUID]model.Slot),
		bookings:     make(map[uuid.UUID]model.Booking),
		waitlist:     make(map[uuid.UUID]model.WaitlistEntry),
	}
}

func (u *unit) repos() repository.Repositories {
	return repository.Repositories{
		Slots:    slotRepo{u},
		Bookings: bookingRepo{u},
		Waitlist: waitlistRepo{u},
		Users:    userLocker{u},
	}
}

func (u *unit) lock(ctx context.Context, id uuid.UUID) error {
	if u.direct {
		return nil
	}
	return holdOnce(ctx, &u.mu, u.store.locks, u.releases, id)
}

func (u *unit) lockUser(ctx context.Context, userID int64) error {
	if u.direct {
		return nil
	}
	return holdOnce(ctx, &u.mu, u.store.userLocks, u.userReleases, userID)
}

func (u *unit) releaseAll() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for id, release := range u.releases {
		release()
		delete(u.releases, id)
	}
	for id, release := range u.userReleases {
		release()
		delete(u.userReleases, id)
	}
}

func (u *unit) commit() error {
	s := u.store
	u.mu.Lock()
	defer u.mu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slot := range u.created {
		if s.slotTakenLocked(slot) {
			return repository.ErrSlotExists
		}
	}
	for id, slot := range u.slots {
		s.slots[id] = slot
	}
	for id, b := range u.bookings {
		s.bookings[id] = b
	}
	for id, e := range u.waitlist {
		s.waitlist[id] = e
	}
	return nil
}

func (s *Store) slotTakenLocked(slot model.Slot) bool {
	for id, other := range s.slots {
		if id != slot.ID && other.CenterID == slot.CenterID &&
			other.Date.Equal(slot.Date) && other.StartTime == slot.StartTime {
			return true
		}
	}
	return false
}

func (u *unit) getSlot(id uuid.UUID) (model.Slot, bool) {
	u.mu.Lock()
	slot, ok := u.slots[id]
	u.mu.Unlock()
	if ok {
		return slot, true
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	slot, ok = u.store.slots[id]
	return slot, ok
}

func (u *unit) putSlot(slot model.Slot) {
	if u.direct {
		u.store.mu.Lock()
		u.store.slots[slot.ID] = slot
		u.store.mu.Unlock()
		return
	}
	u.mu.Lock()
	u.slots[slot.ID] = slot
	u.mu.Unlock()
}

func (u *unit) getBooking(id uuid.UUID) (model.Booking, bool) {
	u.mu.Lock()
	b, ok := u.bookings[id]
	u.mu.Unlock()
	if ok {
		return b, true
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	b, ok = u.store.bookings[id]
	return b, ok
}

func (u *unit) putBooking(b model.Booking) {
	if u.direct {
		u.store.mu.Lock()
		u.store.bookings[b.ID] = b
		u.store.mu.Unlock()
		return
	}
	u.mu.Lock()
	u.bookings[b.ID] = b
	u.mu.Unlock()
}

func (u *unit) putWaitlist(e model.WaitlistEntry) {
	if u.direct {
		u.store.mu.Lock()
		u.store.waitlist[e.ID] = e
		u.store.mu.Unlock()
		return
	}
	u.mu.Lock()
	u.waitlist[e.ID] = e
	u.mu.Unlock()
}

// allBookings merges committed bookings with the unit's staged ones.
func (u *unit) allBookings() []model.Booking {
	u.store.mu.RLock()
	merged := make(map[uuid.UUID]model.Booking, len(u.store.bookings))
	for id, b := range u.store.bookings {
		merged[id] = b
	}
	u.store.mu.RUnlock()

	u.mu.Lock()
	for id, b := range u.bookings {
		merged[id] = b
	}
	u.mu.Unlock()

	out := make([]model.Booking, 0, len(merged))
	for _, b := range merged {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// waitingFor merges committed and staged WAITING entries of one slot, in FIFO order.
func (u *unit) waitingFor(slotID uuid.UUID) []model.WaitlistEntry {
	merged := make(map[uuid.UUID]model.WaitlistEntry)
	u.store.mu.RLock()
	for id, e := range u.store.waitlist {
		if e.SlotID == slotID {
			merged[id] = e
		}
	}
	u.store.mu.RUnlock()

	u.mu.Lock()
	for id, e := range u.waitlist {
		if e.SlotID == slotID {
			merged[id] = e
		}
	}
	u.mu.Unlock()

	out := make([]model.WaitlistEntry, 0, len(merged))
	for _, e := range merged {
		if e.Status == model.WaitlistWaiting {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(&out[j]) })
	return out
}

func sameSlotTime(slot model.Slot, date time.Time, startTime string) bool {
	return slot.Date.Equal(model.TruncateDate(date)) && slot.StartTime == startTime
}
