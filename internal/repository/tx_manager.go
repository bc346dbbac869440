package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxBeginner is a Querier that can also open transactions. *pgxpool.Pool
// satisfies it.
type TxBeginner interface {
	Querier
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// PostgresTxManager runs units of work as pgx transactions.
type PostgresTxManager struct {
	db TxBeginner
}

// NewPostgresTxManager constructs a PostgresTxManager.
func NewPostgresTxManager(db TxBeginner) *PostgresTxManager {
	return &PostgresTxManager{db: db}
}

// WithTx begins a READ COMMITTED transaction, hands fn repositories bound to
// it and commits when fn succeeds. Row locks taken with GetForUpdate are held
// until the commit or rollback below. The rollback also runs when fn panics.
func (m *PostgresTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) (err error) {
	tx, err := m.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	finished := false
	defer func() {
		if finished {
			return
		}
		// the caller's context may already be cancelled
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err = fn(ctx, bind(tx)); err != nil {
		return err
	}
	finished = true
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Repos returns repositories on the pool, outside any transaction.
func (m *PostgresTxManager) Repos() Repositories {
	return bind(m.db)
}

func bind(q Querier) Repositories {
	return Repositories{
		Slots:    NewSlotRepository(q),
		Bookings: NewBookingRepository(q),
		Waitlist: NewWaitlistRepository(q),
		Users:    NewUserLocker(q),
	}
}
