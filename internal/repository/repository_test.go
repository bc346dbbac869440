package repository

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/Shivanand-hulikatti/slot-booking/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortedSlotIDs(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("7fffffff-0000-0000-0000-000000000000")
	c := uuid.MustParse("ffffffff-0000-0000-0000-000000000000")

	got := SortedSlotIDs(c, a, uuid.Nil, b, a)
	assert.Equal(t, []uuid.UUID{a, b, c}, got)
}

func TestSortedSlotIDs_OrderIndependentOfInput(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	forward := SortedSlotIDs(ids...)
	backward := SortedSlotIDs(ids[3], ids[2], ids[1], ids[0])

	assert.Equal(t, forward, backward)
	for i := 1; i < len(forward); i++ {
		assert.Negative(t, bytes.Compare(forward[i-1][:], forward[i][:]))
	}
}

// recordingSlots records the order of GetForUpdate calls.
type recordingSlots struct {
	SlotRepository
	order   []uuid.UUID
	missing uuid.UUID
	fail    error
}

func (r *recordingSlots) GetForUpdate(_ context.Context, id uuid.UUID) (*model.Slot, error) {
	r.order = append(r.order, id)
	if id == r.missing {
		return nil, ErrSlotNotFound
	}
	if r.fail != nil {
		return nil, r.fail
	}
	return &model.Slot{ID: id}, nil
}

func TestLockSlots_AcquiresInSortedOrder(t *testing.T) {
	a := uuid.MustParse("10000000-0000-0000-0000-000000000000")
	b := uuid.MustParse("20000000-0000-0000-0000-000000000000")
	repo := &recordingSlots{}

	locked, err := LockSlots(context.Background(), repo, b, a, b)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{a, b}, repo.order)
	assert.Len(t, locked, 2)
	assert.Equal(t, a, locked[a].ID)
}

func TestLockSlots_Errors(t *testing.T) {
	id := uuid.New()

	_, err := LockSlots(context.Background(), &recordingSlots{missing: id}, id)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	boom := errors.New("connection reset")
	_, err = LockSlots(context.Background(), &recordingSlots{fail: boom}, id)
	assert.ErrorIs(t, err, boom)
}
