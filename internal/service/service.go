// Package service implements the reservation core: booking, cancellation,
// same-time conflict resolution and FIFO waitlist promotion, orchestrated over
// the repository layer's units of work.
package service

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/slot-booking/internal/notify"
	"github.com/Shivanand-hulikatti/slot-booking/internal/repository"
	"github.com/sirupsen/logrus"
)

// Option configures a Coordinator or SlotService.
type Option func(*deps)

type deps struct {
	now       func() time.Time
	log       *logrus.Entry
	publisher notify.Publisher
}

// WithClock overrides the time source used for timestamps and queue order.
func WithClock(now func() time.Time) Option {
	return func(d *deps) { d.now = now }
}

func WithLogger(log *logrus.Entry) Option {
	return func(d *deps) { d.log = log }
}

// WithPublisher sets where committed booking events are sent.
func WithPublisher(p notify.Publisher) Option {
	return func(d *deps) { d.publisher = p }
}

func newDeps(component string, opts []Option) deps {
	d := deps{
		now:       func() time.Time { return time.Now().UTC() },
		log:       logrus.NewEntry(logrus.StandardLogger()),
		publisher: notify.Nop{},
	}
	for _, opt := range opts {
		opt(&d)
	}
	d.log = d.log.WithField("component", component)
	return d
}

// publish sends events after commit. Delivery failures are logged, never
// surfaced: the booking state is already durable.
func (d deps) publish(ctx context.Context, events []notify.Event) {
	if len(events) == 0 {
		return
	}
	if err := d.publisher.Publish(ctx, events...); err != nil {
		d.log.WithError(err).WithField("events", len(events)).Warn("failed to publish booking events")
	}
}

// Coordinator is the reservation service boundary: Book, Cancel and the
// availability and per-user reads.
type Coordinator struct {
	deps
	tx        repository.TxManager
	ledger    *bookingLedger
	waitlist  *waitlistQueue
	conflicts *conflictResolver
}

// NewCoordinator wires the ledger, waitlist and conflict resolver over tx.
func NewCoordinator(tx repository.TxManager, opts ...Option) *Coordinator {
	d := newDeps("reservation", opts)
	ledger := &bookingLedger{now: d.now}
	waitlist := &waitlistQueue{now: d.now, ledger: ledger, log: d.log}
	return &Coordinator{
		deps:      d,
		tx:        tx,
		ledger:    ledger,
		waitlist:  waitlist,
		conflicts: &conflictResolver{now: d.now, ledger: ledger, waitlist: waitlist, log: d.log},
	}
}
