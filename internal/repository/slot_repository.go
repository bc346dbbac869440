package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/slot-booking/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const slotColumns = `id, center_id, date, to_char(start_time, 'HH24:MI'), capacity,
		        seats_remaining, status, created_at, updated_at`

// SlotPostgresRepository handles persistence for slots.
type SlotPostgresRepository struct {
	db Querier
}

// NewSlotRepository constructs a SlotPostgresRepository on a pool or transaction.
func NewSlotRepository(db Querier) *SlotPostgresRepository {
	return &SlotPostgresRepository{db: db}
}

// Create inserts a new slot.
func (r *SlotPostgresRepository) Create(ctx context.Context, slot *model.Slot) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO slots (id, center_id, date, start_time, capacity, seats_remaining, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4::time, $5, $6, $7, $8, $9)`,
		slot.ID, slot.CenterID, slot.Date, slot.StartTime, slot.Capacity,
		slot.SeatsRemaining, slot.Status, slot.CreatedAt, slot.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrSlotExists
		}
		return fmt.Errorf("insert slot: %w", err)
	}
	return nil
}

// Get returns a slot without locking it, or ErrSlotNotFound.
func (r *SlotPostgresRepository) Get(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	return r.scanOne(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id)
}

// GetForUpdate acquires an exclusive row-level lock on the slot.
//
// SELECT … FOR UPDATE blocks any other transaction issuing the same statement
// for this row until we COMMIT or ROLLBACK, which serialises every
// read-modify-write of the seat counter. It only holds a lock when the
// repository was built on a pgx.Tx.
func (r *SlotPostgresRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	return r.scanOne(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1 FOR UPDATE`, id)
}

// Save writes back the mutable part of a slot.
func (r *SlotPostgresRepository) Save(ctx context.Context, slot *model.Slot) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE slots
		 SET seats_remaining = $1, status = $2, updated_at = $3
		 WHERE id = $4`,
		slot.SeatsRemaining, slot.Status, slot.UpdatedAt, slot.ID,
	)
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// FindByCenterDateTime locates the slot a center runs at the given date and time.
func (r *SlotPostgresRepository) FindByCenterDateTime(ctx context.Context, centerID int64, date time.Time, startTime string) (*model.Slot, error) {
	return r.scanOne(ctx,
		`SELECT `+slotColumns+`
		 FROM slots
		 WHERE center_id = $1 AND date = $2 AND start_time = $3::time`,
		centerID, date, startTime,
	)
}

func (r *SlotPostgresRepository) scanOne(ctx context.Context, query string, args ...any) (*model.Slot, error) {
	var s model.Slot
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&s.ID, &s.CenterID, &s.Date, &s.StartTime, &s.Capacity,
		&s.SeatsRemaining, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return &s, nil
}
