package booking

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/Hariprasath006/Campus-Resource-Management/internal/audit"
)

// MemoryStore keeps bookings in process memory. It backs STORE_DRIVER=memory
// and the tests, and gives the same guarantees as PostgresStore: slot locks,
// per-booking locks and all-or-nothing units.
type MemoryStore struct {
	mu      sync.RWMutex
	order   []string
	byID    map[string]Booking
	history map[string][]audit.Entry

	slots keyedLocks
	rows  keyedLocks
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]Booking),
		history: make(map[string][]audit.Entry),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (s *MemoryStore) List(ctx context.Context, f Filter) iter.Seq2[Booking, error] {
	return func(yield func(Booking, error) bool) {
		// Snapshot under the read lock so a slow consumer never blocks writers.
		s.mu.RLock()
		snap := make([]Booking, 0, len(s.order))
		for _, id := range s.order {
			if b := s.byID[id]; f.Match(b) {
				snap = append(snap, b)
			}
		}
		s.mu.RUnlock()

		for _, b := range snap {
			if err := ctx.Err(); err != nil {
				yield(Booking{}, err)
				return
			}
			if !yield(b, nil) {
				return
			}
		}
	}
}

func (s *MemoryStore) History(_ context.Context, bookingID string) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]audit.Entry(nil), s.history[bookingID]...), nil
}

func (s *MemoryStore) Atomically(ctx context.Context, slot *SlotKey, fn func(tx Tx) error) error {
	if slot != nil {
		unlock, err := s.slots.lock(ctx, slot.String())
		if err != nil {
			return err
		}
		defer unlock()
	}

	tx := &memTx{store: s, updates: make(map[string]Booking)}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

type memTx struct {
	store    *MemoryStore
	inserts  []Booking
	updates  map[string]Booking
	entries  []audit.Entry
	unlocks  []func()
	lockedID map[string]bool
}

// view returns the booking as this unit sees it: its own writes first.
func (t *memTx) view(id string) (Booking, bool) {
	if b, ok := t.updates[id]; ok {
		return b, true
	}
	for _, b := range t.inserts {
		if b.ID == id {
			return b, true
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	b, ok := t.store.byID[id]
	return b, ok
}

func (t *memTx) BookingsOnSlot(_ context.Context, slot SlotKey) ([]Booking, error) {
	t.store.mu.RLock()
	var out []Booking
	for _, id := range t.store.order {
		b := t.store.byID[id]
		if b.Slot() != slot {
			continue
		}
		if u, ok := t.updates[id]; ok {
			b = u
		}
		out = append(out, b)
	}
	t.store.mu.RUnlock()

	for _, b := range t.inserts {
		if b.Slot() == slot {
			out = append(out, b)
		}
	}
	return out, nil
}

func (t *memTx) GetForUpdate(ctx context.Context, id string) (*Booking, error) {
	if !t.lockedID[id] {
		unlock, err := t.store.rows.lock(ctx, id)
		if err != nil {
			return nil, err
		}
		if t.lockedID == nil {
			t.lockedID = make(map[string]bool)
		}
		t.lockedID[id] = true
		t.unlocks = append(t.unlocks, unlock)
	}

	b, ok := t.view(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (t *memTx) Insert(_ context.Context, b *Booking) error {
	if _, ok := t.view(b.ID); ok {
		return fmt.Errorf("insert booking: duplicate id %s", b.ID)
	}
	t.inserts = append(t.inserts, *b)
	return nil
}

func (t *memTx) UpdateStatus(_ context.Context, id string, to Status, at time.Time) error {
	b, ok := t.view(id)
	if !ok {
		return ErrNotFound
	}
	b.Status = to
	b.UpdatedAt = at

	for i := range t.inserts {
		if t.inserts[i].ID == id {
			t.inserts[i] = b
			return nil
		}
	}
	t.updates[id] = b
	return nil
}

func (t *memTx) Record(_ context.Context, e audit.Entry) error {
	t.entries = append(t.entries, e)
	return nil
}

func (t *memTx) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// Same guard as the partial unique index in Postgres: no touched slot may
	// end up with two active bookings.
	touched := make(map[SlotKey]int)
	for _, b := range t.inserts {
		touched[b.Slot()] = 0
	}
	for _, b := range t.updates {
		touched[b.Slot()] = 0
	}
	for _, id := range s.order {
		b := s.byID[id]
		if u, ok := t.updates[id]; ok {
			b = u
		}
		if _, ok := touched[b.Slot()]; ok && b.Status.Active() {
			touched[b.Slot()]++
		}
	}
	for _, b := range t.inserts {
		if b.Status.Active() {
			touched[b.Slot()]++
		}
	}
	for _, n := range touched {
		if n > 1 {
			return ErrSlotTaken
		}
	}

	for id, b := range t.updates {
		s.byID[id] = b
	}
	for _, b := range t.inserts {
		s.byID[b.ID] = b
		s.order = append(s.order, b.ID)
	}
	for _, e := range t.entries {
		s.history[e.BookingID] = append(s.history[e.BookingID], e)
	}
	return nil
}

func (t *memTx) release() {
	for i := len(t.unlocks) - 1; i >= 0; i-- {
		t.unlocks[i]()
	}
	t.unlocks = nil
}

// keyedLocks hands out one mutex per key. Waiting honours ctx.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func (k *keyedLocks) lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			k.drop(key, l)
		}, nil
	case <-ctx.Done():
		k.drop(key, l)
		return nil, ctx.Err()
	}
}

func (k *keyedLocks) drop(key string, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}
