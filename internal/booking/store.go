package booking

import (
	"context"
	"iter"
	"time"

	"github.com/Hariprasath006/Campus-Resource-Management/internal/audit"
)

// Store is durable booking storage. It holds no lifecycle rules; the Service
// decides what is written.
type Store interface {
	Get(ctx context.Context, id string) (*Booking, error)

	// List yields bookings matching f in insertion order. Each range over the
	// sequence reads the store again.
	List(ctx context.Context, f Filter) iter.Seq2[Booking, error]

	History(ctx context.Context, bookingID string) ([]audit.Entry, error)

	// Atomically runs fn as one unit. When slot is non-nil the slot is locked
	// for the whole unit, before any booking row lock taken inside fn. An error
	// from fn discards every write fn made and is returned unchanged.
	Atomically(ctx context.Context, slot *SlotKey, fn func(tx Tx) error) error
}

type Tx interface {
	SlotReader

	// GetForUpdate locks the booking until the unit ends.
	GetForUpdate(ctx context.Context, id string) (*Booking, error)
	Insert(ctx context.Context, b *Booking) error
	UpdateStatus(ctx context.Context, id string, to Status, at time.Time) error
	Record(ctx context.Context, e audit.Entry) error
}
