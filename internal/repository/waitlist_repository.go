package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/slot-booking/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WaitlistPostgresRepository handles persistence for waitlist entries.
type WaitlistPostgresRepository struct {
	db Querier
}

// NewWaitlistRepository constructs a WaitlistPostgresRepository on a pool or transaction.
func NewWaitlistRepository(db Querier) *WaitlistPostgresRepository {
	return &WaitlistPostgresRepository{db: db}
}

// Create inserts a WAITING entry; seq comes from a BIGSERIAL column so equal
// queued_at values still have a stable arrival order.
func (r *WaitlistPostgresRepository) Create(ctx context.Context, e *model.WaitlistEntry) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO waitlist_entries (id, user_id, slot_id, status, queued_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING seq`,
		e.ID, e.UserID, e.SlotID, e.Status, e.QueuedAt,
	).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("insert waitlist entry: %w", err)
	}
	return nil
}

// Save persists a waitlist entry's status change.
func (r *WaitlistPostgresRepository) Save(ctx context.Context, e *model.WaitlistEntry) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE waitlist_entries SET status = $1 WHERE id = $2`,
		e.Status, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update waitlist entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update waitlist entry %s: no such entry", e.ID)
	}
	return nil
}

// FindWaitingBySlot returns the slot's WAITING entries in FIFO order.
func (r *WaitlistPostgresRepository) FindWaitingBySlot(ctx context.Context, slotID uuid.UUID) ([]model.WaitlistEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, slot_id, status, queued_at, seq
		 FROM waitlist_entries
		 WHERE slot_id = $1 AND status = $2
		 ORDER BY queued_at ASC, seq ASC`,
		slotID, model.WaitlistWaiting,
	)
	if err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	defer rows.Close()

	var entries []model.WaitlistEntry
	for rows.Next() {
		var e model.WaitlistEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.SlotID, &e.Status, &e.QueuedAt, &e.Seq); err != nil {
			return nil, fmt.Errorf("scan waitlist entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FindWaitingBySlotAndUser returns the user's WAITING entry on the slot, if any.
func (r *WaitlistPostgresRepository) FindWaitingBySlotAndUser(ctx context.Context, slotID uuid.UUID, userID int64) (model.WaitlistEntry, bool, error) {
	var e model.WaitlistEntry
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, slot_id, status, queued_at, seq
		 FROM waitlist_entries
		 WHERE slot_id = $1 AND user_id = $2 AND status = $3`,
		slotID, userID, model.WaitlistWaiting,
	).Scan(&e.ID, &e.UserID, &e.SlotID, &e.Status, &e.QueuedAt, &e.Seq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.WaitlistEntry{}, false, nil
		}
		return model.WaitlistEntry{}, false, fmt.Errorf("find waitlist entry: %w", err)
	}
	return e, true, nil
}

// CountWaitingBySlot counts the slot's WAITING entries.
func (r *WaitlistPostgresRepository) CountWaitingBySlot(ctx context.Context, slotID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM waitlist_entries WHERE slot_id = $1 AND status = $2`,
		slotID, model.WaitlistWaiting,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count waitlist: %w", err)
	}
	return n, nil
}
