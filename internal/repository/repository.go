// Package repository defines the persistence contract of the reservation core
// and implements it on PostgreSQL with pgx (no ORM).
//
// Every seat-affecting mutation runs inside a TxManager unit of work. Slot rows
// are locked with SELECT … FOR UPDATE; concurrent transactions touching the
// same slot queue behind the holder until it commits or rolls back, while
// transactions on other slots proceed in parallel.
package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Shivanand-hulikatti/slot-booking/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrSlotNotFound is returned when a requested slot does not exist.
var ErrSlotNotFound = errors.New("slot not found")

// ErrBookingNotFound is returned when a requested booking does not exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrSlotExists is returned when a slot already exists for the same center, date and time.
var ErrSlotExists = errors.New("slot already exists for this center, date and time")

// ErrUnauthorized is returned when a user acts on a booking they do not own.
var ErrUnauthorized = errors.New("unauthorized")

// ErrAlreadyCancelled is returned when cancelling a booking that is already cancelled.
var ErrAlreadyCancelled = errors.New("booking already cancelled")

// ErrSlotUnavailable is returned when booking a CANCELLED or CLOSED slot.
var ErrSlotUnavailable = errors.New("slot not available")

// ErrInvalidInput is returned for malformed requests.
var ErrInvalidInput = errors.New("invalid input")

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same repository code runs inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SlotRepository stores slots and hands out exclusive access to them.
type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	Get(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	// GetForUpdate blocks until the caller's unit of work holds the slot
	// exclusively. The hold lasts until the unit of work ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	Save(ctx context.Context, slot *model.Slot) error
	FindByCenterDateTime(ctx context.Context, centerID int64, date time.Time, startTime string) (*model.Slot, error)
}

// BookingRepository is the durable ledger of bookings.
type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	Save(ctx context.Context, booking *model.Booking) error
	// FindOverlapping returns the user's CONFIRMED booking on any slot with
	// the given date and start time. ok is false when there is none.
	FindOverlapping(ctx context.Context, userID int64, date time.Time, startTime string) (booking model.Booking, ok bool, err error)
	FindByUserAndDate(ctx context.Context, userID int64, date time.Time) ([]model.Booking, error)
	CountConfirmedBySlot(ctx context.Context, slotID uuid.UUID) (int, error)
}

// WaitlistRepository stores waitlist entries.
type WaitlistRepository interface {
	// Create inserts a WAITING entry and assigns its Seq.
	Create(ctx context.Context, entry *model.WaitlistEntry) error
	Save(ctx context.Context, entry *model.WaitlistEntry) error
	// FindWaitingBySlot returns WAITING entries ordered by queued-at, then Seq.
	FindWaitingBySlot(ctx context.Context, slotID uuid.UUID) ([]model.WaitlistEntry, error)
	FindWaitingBySlotAndUser(ctx context.Context, slotID uuid.UUID, userID int64) (entry model.WaitlistEntry, ok bool, err error)
	CountWaitingBySlot(ctx context.Context, slotID uuid.UUID) (int, error)
}

// UserLocker serialises the booking attempts of one user. The lock is held
// until the unit of work ends and is always taken before any slot lock.
type UserLocker interface {
	Lock(ctx context.Context, userID int64) error
}

// Repositories groups the repositories bound to one unit of work (or to the
// pool, for lock-free reads).
type Repositories struct {
	Slots    SlotRepository
	Bookings BookingRepository
	Waitlist WaitlistRepository
	Users    UserLocker
}

// TxManager runs fn as one atomic unit of work. If fn returns an error every
// write made through repos is discarded; otherwise all of them become visible
// together. Slot locks taken through repos are released when WithTx returns.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	// Repos returns repositories outside any transaction, for reads that need
	// no locking.
	Repos() Repositories
}

// SortedSlotIDs de-duplicates ids and orders them ascending by their bytes.
// Every multi-slot acquisition goes through this order so two units of work
// can never wait on each other's slots.
func SortedSlotIDs(ids ...uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// LockSlots acquires every slot in ids exclusively, in SortedSlotIDs order.
func LockSlots(ctx context.Context, slots SlotRepository, ids ...uuid.UUID) (map[uuid.UUID]*model.Slot, error) {
	locked := make(map[uuid.UUID]*model.Slot, len(ids))
	for _, id := range SortedSlotIDs(ids...) {
		slot, err := slots.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, ErrSlotNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("lock slot %s: %w", id, err)
		}
		locked[id] = slot
	}
	return locked, nil
}
