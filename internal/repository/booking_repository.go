package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/slot-booking/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BookingPostgresRepository handles persistence for bookings.
type BookingPostgresRepository struct {
	db Querier
}

// NewBookingRepository constructs a BookingPostgresRepository on a pool or transaction.
func NewBookingRepository(db Querier) *BookingPostgresRepository {
	return &BookingPostgresRepository{db: db}
}

// Create inserts a new booking.
func (r *BookingPostgresRepository) Create(ctx context.Context, b *model.Booking) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO bookings (id, user_id, slot_id, center_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.UserID, b.SlotID, b.CenterID, b.Status, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// Get returns a single booking or ErrBookingNotFound.
func (r *BookingPostgresRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, slot_id, center_id, status, created_at, updated_at
		 FROM bookings WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.UserID, &b.SlotID, &b.CenterID, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return &b, nil
}

// Save persists a booking's status change.
func (r *BookingPostgresRepository) Save(ctx context.Context, b *model.Booking) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`,
		b.Status, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// FindOverlapping returns the user's confirmed booking on any slot that starts
// at the same date and time.
func (r *BookingPostgresRepository) FindOverlapping(ctx context.Context, userID int64, date time.Time, startTime string) (model.Booking, bool, error) {
	var b model.Booking
	err := r.db.QueryRow(ctx,
		`SELECT b.id, b.user_id, b.slot_id, b.center_id, b.status, b.created_at, b.updated_at
		 FROM bookings b
		 JOIN slots s ON s.id = b.slot_id
		 WHERE b.user_id = $1
		   AND b.status = $2
		   AND s.date = $3
		   AND s.start_time = $4::time
		 ORDER BY b.created_at ASC
		 LIMIT 1`,
		userID, model.BookingConfirmed, date, startTime,
	).Scan(&b.ID, &b.UserID, &b.SlotID, &b.CenterID, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Booking{}, false, nil
		}
		return model.Booking{}, false, fmt.Errorf("find overlapping booking: %w", err)
	}
	return b, true, nil
}

// FindByUserAndDate returns every booking of the user on slots held on date.
func (r *BookingPostgresRepository) FindByUserAndDate(ctx context.Context, userID int64, date time.Time) ([]model.Booking, error) {
	rows, err := r.db.Query(ctx,
		`SELECT b.id, b.user_id, b.slot_id, b.center_id, b.status, b.created_at, b.updated_at
		 FROM bookings b
		 JOIN slots s ON s.id = b.slot_id
		 WHERE b.user_id = $1 AND s.date = $2
		 ORDER BY b.created_at ASC`,
		userID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.SlotID, &b.CenterID, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// CountConfirmedBySlot counts the confirmed bookings holding a seat on the slot.
func (r *BookingPostgresRepository) CountConfirmedBySlot(ctx context.Context, slotID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE slot_id = $1 AND status = $2`,
		slotID, model.BookingConfirmed,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count confirmed bookings: %w", err)
	}
	return n, nil
}
