package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS slots (
		id              UUID PRIMARY KEY,
		center_id       BIGINT      NOT NULL,
		date            DATE        NOT NULL,
		start_time      TIME        NOT NULL,
		capacity        INTEGER     NOT NULL CHECK (capacity > 0),
		seats_remaining INTEGER     NOT NULL,
		status          VARCHAR(16) NOT NULL DEFAULT 'OPEN',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT slots_center_date_time_key UNIQUE (center_id, date, start_time),
		CONSTRAINT slots_seats_range CHECK (seats_remaining >= 0 AND seats_remaining <= capacity)
	)`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id         UUID PRIMARY KEY,
		user_id    BIGINT      NOT NULL,
		slot_id    UUID        NOT NULL REFERENCES slots(id),
		center_id  BIGINT      NOT NULL,
		status     VARCHAR(16) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS waitlist_entries (
		id        UUID PRIMARY KEY,
		user_id   BIGINT      NOT NULL,
		slot_id   UUID        NOT NULL REFERENCES slots(id),
		status    VARCHAR(16) NOT NULL,
		queued_at TIMESTAMPTZ NOT NULL,
		seq       BIGSERIAL   NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_bookings_slot_status ON bookings(slot_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_user_status ON bookings(user_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_waitlist_slot_queue ON waitlist_entries(slot_id, status, queued_at, seq)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_waitlist_one_waiting
		ON waitlist_entries(slot_id, user_id) WHERE status = 'WAITING'`,
}

// RunMigrations creates the reservation schema if it does not exist yet.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
