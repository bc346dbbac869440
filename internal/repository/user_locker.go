package repository

import (
	"context"
	"fmt"
)

// UserLockPostgres takes transaction-scoped advisory locks keyed by user id.
type UserLockPostgres struct {
	db Querier
}

// NewUserLocker constructs a UserLocker on q.
func NewUserLocker(q Querier) *UserLockPostgres {
	return &UserLockPostgres{db: q}
}

// Lock blocks until the current transaction holds the user's advisory lock.
// Postgres releases it at commit or rollback.
func (r *UserLockPostgres) Lock(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
		return fmt.Errorf("lock user %d: %w", userID, err)
	}
	return nil
}
