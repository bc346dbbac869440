package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/slot-booking/internal/model"
	"github.com/Shivanand-hulikatti/slot-booking/internal/notify"
	"github.com/Shivanand-hulikatti/slot-booking/internal/repository/memstore"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const testDate = "2026-05-04"

// tickClock advances by one millisecond on every read so timestamps are
// strictly increasing.
type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTickClock() *tickClock {
	return &tickClock{t: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *tickClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, events ...notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

func (p *recordingPublisher) types() []notify.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notify.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	p.events = nil
	p.mu.Unlock()
}

type fixture struct {
	store *memstore.Store
	coord *Coordinator
	slots *SlotService
	pub   *recordingPublisher
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := memstore.New()
	pub := &recordingPublisher{}
	all := append([]Option{
		WithClock(newTickClock().now),
		WithLogger(quietLogger()),
		WithPublisher(pub),
	}, opts...)
	return &fixture{
		store: store,
		coord: NewCoordinator(store, all...),
		slots: NewSlotService(store, all...),
		pub:   pub,
	}
}

func (f *fixture) slot(t *testing.T, centerID int64, startTime string, capacity int) *model.Slot {
	t.Helper()
	s, err := f.slots.CreateSlot(context.Background(), model.CreateSlotRequest{
		CenterID:  centerID,
		Date:      testDate,
		StartTime: startTime,
		Capacity:  capacity,
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) reload(t *testing.T, s *model.Slot) *model.Slot {
	t.Helper()
	got, err := f.slots.GetSlot(context.Background(), s.ID)
	require.NoError(t, err)
	return got
}

func (f *fixture) mustAudit(t *testing.T, s *model.Slot) *model.SlotAudit {
	t.Helper()
	a, err := f.slots.Audit(context.Background(), s.ID)
	require.NoError(t, err)
	require.True(t, a.Consistent, "seats_remaining=%d confirmed=%d capacity=%d", a.SeatsRemaining, a.Confirmed, a.Capacity)
	return a
}

func mustDate(t *testing.T) time.Time {
	t.Helper()
	d, err := ParseDate(testDate)
	require.NoError(t, err)
	return d
}

var errBroker = errors.New("broker down")
