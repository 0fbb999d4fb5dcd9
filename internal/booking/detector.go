package booking

import (
	"context"
	"fmt"
)

type Availability int

const (
	Available Availability = iota
	Conflict
)

func (a Availability) String() string {
	if a == Conflict {
		return "Conflict"
	}
	return "Available"
}

// SlotReader returns every stored booking on a slot, whatever its status.
type SlotReader interface {
	BookingsOnSlot(ctx context.Context, slot SlotKey) ([]Booking, error)
}

// CheckAvailable reports Conflict when a booking other than excludeID holds
// slot in an active status. It reads only; callers run it inside the same
// Store.Atomically call as the write it guards, with the slot locked.
func CheckAvailable(ctx context.Context, r SlotReader, slot SlotKey, excludeID string) (Availability, error) {
	existing, err := r.BookingsOnSlot(ctx, slot)
	if err != nil {
		return Conflict, fmt.Errorf("read slot: %w", err)
	}
	for _, b := range existing {
		if b.ID == excludeID || !b.Status.Active() {
			continue
		}
		if b.Slot() == slot {
			return Conflict, nil
		}
	}
	return Available, nil
}
