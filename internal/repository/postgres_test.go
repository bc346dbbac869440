package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/slot-booking/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pgDay = time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	pgNow = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
)

var slotCols = []string{
	"id", "center_id", "date", "start_time", "capacity",
	"seats_remaining", "status", "created_at", "updated_at",
}

var bookingCols = []string{"id", "user_id", "slot_id", "center_id", "status", "created_at", "updated_at"}

var waitlistCols = []string{"id", "user_id", "slot_id", "status", "queued_at", "seq"}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func q(sql string) string {
	return regexp.QuoteMeta(sql)
}

func slotRow(id uuid.UUID, seats int, status model.SlotStatus) *pgxmock.Rows {
	return pgxmock.NewRows(slotCols).
		AddRow(id, int64(3), pgDay, "09:30", 2, seats, status, pgNow, pgNow)
}

func TestSlotRepository_GetReadsStartTimeAsText(t *testing.T) {
	mock := newMockPool(t)
	id := uuid.New()

	mock.ExpectQuery(q("to_char(start_time, 'HH24:MI')")).
		WithArgs(id).
		WillReturnRows(slotRow(id, 1, model.SlotOpen))

	got, err := NewSlotRepository(mock).Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, &model.Slot{
		ID:             id,
		CenterID:       3,
		Date:           pgDay,
		StartTime:      "09:30",
		Capacity:       2,
		SeatsRemaining: 1,
		Status:         model.SlotOpen,
		CreatedAt:      pgNow,
		UpdatedAt:      pgNow,
	}, got)
}

func TestSlotRepository_GetForUpdateLocksRow(t *testing.T) {
	mock := newMockPool(t)
	id := uuid.New()

	mock.ExpectQuery(q("FROM slots WHERE id = $1 FOR UPDATE")).
		WithArgs(id).
		WillReturnRows(slotRow(id, 0, model.SlotFull))

	got, err := NewSlotRepository(mock).GetForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.SlotFull, got.Status)
	assert.Zero(t, got.SeatsRemaining)
}

func TestSlotRepository_GetMissing(t *testing.T) {
	mock := newMockPool(t)
	id := uuid.New()

	mock.ExpectQuery(q("FROM slots WHERE id = $1")).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := NewSlotRepository(mock).Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestSlotRepository_CreateDuplicate(t *testing.T) {
	mock := newMockPool(t)
	slot := model.NewSlot(3, pgDay, "09:30", 2, pgNow)

	mock.ExpectExec(q("VALUES ($1, $2, $3, $4::time, $5, $6, $7, $8, $9)")).
		WithArgs(slot.ID, slot.CenterID, slot.Date, "09:30", 2, 2, model.SlotOpen, pgNow, pgNow).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "slots_center_id_date_start_time_key"})

	err := NewSlotRepository(mock).Create(context.Background(), &slot)
	assert.ErrorIs(t, err, ErrSlotExists)
}

func TestSlotRepository_CreateOtherFailureIsWrapped(t *testing.T) {
	mock := newMockPool(t)
	slot := model.NewSlot(3, pgDay, "09:30", 2, pgNow)
	boom := errors.New("connection reset")

	mock.ExpectExec(q("INSERT INTO slots")).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(boom)

	err := NewSlotRepository(mock).Create(context.Background(), &slot)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrSlotExists)
}

func TestSlotRepository_SaveMissing(t *testing.T) {
	mock := newMockPool(t)
	slot := model.NewSlot(3, pgDay, "09:30", 2, pgNow)

	mock.ExpectExec(q("UPDATE slots")).
		WithArgs(2, model.SlotOpen, pgNow, slot.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewSlotRepository(mock).Save(context.Background(), &slot)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestSlotRepository_FindByCenterDateTimeCastsTime(t *testing.T) {
	mock := newMockPool(t)
	id := uuid.New()

	mock.ExpectQuery(q("WHERE center_id = $1 AND date = $2 AND start_time = $3::time")).
		WithArgs(int64(3), pgDay, "09:30").
		WillReturnRows(slotRow(id, 2, model.SlotOpen))

	got, err := NewSlotRepository(mock).FindByCenterDateTime(context.Background(), 3, pgDay, "09:30")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
}

func TestBookingRepository_FindOverlapping(t *testing.T) {
	mock := newMockPool(t)
	repo := NewBookingRepository(mock)
	ctx := context.Background()
	bookingID, slotID := uuid.New(), uuid.New()

	mock.ExpectQuery(q("JOIN slots s ON s.id = b.slot_id")).
		WithArgs(int64(7), model.BookingConfirmed, pgDay, "09:30").
		WillReturnRows(pgxmock.NewRows(bookingCols).
			AddRow(bookingID, int64(7), slotID, int64(3), model.BookingConfirmed, pgNow, pgNow))
	mock.ExpectQuery(q("AND s.start_time = $4::time")).
		WithArgs(int64(7), model.BookingConfirmed, pgDay, "11:00").
		WillReturnError(pgx.ErrNoRows)

	got, ok, err := repo.FindOverlapping(ctx, 7, pgDay, "09:30")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, bookingID, got.ID)
	assert.Equal(t, slotID, got.SlotID)

	_, ok, err = repo.FindOverlapping(ctx, 7, pgDay, "11:00")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBookingRepository_FindOverlappingFailure(t *testing.T) {
	mock := newMockPool(t)
	boom := errors.New("statement timeout")

	mock.ExpectQuery(q("FROM bookings b")).
		WithArgs(int64(7), model.BookingConfirmed, pgDay, "09:30").
		WillReturnError(boom)

	_, ok, err := NewBookingRepository(mock).FindOverlapping(context.Background(), 7, pgDay, "09:30")
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
}

func TestWaitlistRepository_CreateAssignsSeq(t *testing.T) {
	mock := newMockPool(t)
	entry := model.NewWaitlistEntry(7, uuid.New(), pgNow)

	mock.ExpectQuery(q("RETURNING seq")).
		WithArgs(entry.ID, int64(7), entry.SlotID, model.WaitlistWaiting, pgNow).
		WillReturnRows(pgxmock.NewRows([]string{"seq"}).AddRow(int64(42)))

	require.NoError(t, NewWaitlistRepository(mock).Create(context.Background(), &entry))
	assert.Equal(t, int64(42), entry.Seq)
}

func TestWaitlistRepository_FindWaitingBySlotInQueueOrder(t *testing.T) {
	mock := newMockPool(t)
	slotID := uuid.New()
	first, second, third := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(q("ORDER BY queued_at ASC, seq ASC")).
		WithArgs(slotID, model.WaitlistWaiting).
		WillReturnRows(pgxmock.NewRows(waitlistCols).
			AddRow(first, int64(1), slotID, model.WaitlistWaiting, pgNow, int64(4)).
			AddRow(second, int64(2), slotID, model.WaitlistWaiting, pgNow, int64(9)).
			AddRow(third, int64(3), slotID, model.WaitlistWaiting, pgNow.Add(time.Second), int64(2)))

	got, err := NewWaitlistRepository(mock).FindWaitingBySlot(context.Background(), slotID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []uuid.UUID{first, second, third}, []uuid.UUID{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, []int64{4, 9, 2}, []int64{got[0].Seq, got[1].Seq, got[2].Seq})
}

func TestWaitlistRepository_SaveMissing(t *testing.T) {
	mock := newMockPool(t)
	entry := model.NewWaitlistEntry(7, uuid.New(), pgNow)
	entry.Status = model.WaitlistPromoted

	mock.ExpectExec(q("UPDATE waitlist_entries SET status = $1 WHERE id = $2")).
		WithArgs(model.WaitlistPromoted, entry.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.Error(t, NewWaitlistRepository(mock).Save(context.Background(), &entry))
}

func TestUserLocker_TakesTransactionAdvisoryLock(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectExec(q("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	assert.NoError(t, NewUserLocker(mock).Lock(context.Background(), 7))
}

func TestPostgresTxManager_CommitsOnSuccess(t *testing.T) {
	mock := newMockPool(t)
	slot := model.NewSlot(3, pgDay, "09:30", 2, pgNow)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectExec(q("UPDATE slots")).
		WithArgs(2, model.SlotOpen, pgNow, slot.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := NewPostgresTxManager(mock).WithTx(context.Background(), func(ctx context.Context, repos Repositories) error {
		return repos.Slots.Save(ctx, &slot)
	})
	assert.NoError(t, err)
}

func TestPostgresTxManager_RollsBackOnError(t *testing.T) {
	mock := newMockPool(t)
	slot := model.NewSlot(3, pgDay, "09:30", 2, pgNow)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectExec(q("UPDATE slots")).
		WithArgs(2, model.SlotOpen, pgNow, slot.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := NewPostgresTxManager(mock).WithTx(context.Background(), func(ctx context.Context, repos Repositories) error {
		return repos.Slots.Save(ctx, &slot)
	})
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestPostgresTxManager_RollsBackOnPanic(t *testing.T) {
	mock := newMockPool(t)
	id := uuid.New()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery(q("FOR UPDATE")).
		WithArgs(id).
		WillReturnRows(slotRow(id, 1, model.SlotOpen))
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "handler bug", func() {
		_ = NewPostgresTxManager(mock).WithTx(context.Background(), func(ctx context.Context, repos Repositories) error {
			if _, err := repos.Slots.GetForUpdate(ctx, id); err != nil {
				return err
			}
			panic("handler bug")
		})
	})
}

func TestPostgresTxManager_RollsBackWhenContextAlreadyCancelled(t *testing.T) {
	mock := newMockPool(t)
	ctx, cancel := context.WithCancel(context.Background())

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectRollback()

	err := NewPostgresTxManager(mock).WithTx(ctx, func(ctx context.Context, _ Repositories) error {
		cancel()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPostgresTxManager_BeginFailure(t *testing.T) {
	mock := newMockPool(t)
	boom := errors.New("pool exhausted")

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted}).WillReturnError(boom)

	called := false
	err := NewPostgresTxManager(mock).WithTx(context.Background(), func(context.Context, Repositories) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}
