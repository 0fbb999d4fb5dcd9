package booking

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Hariprasath006/Campus-Resource-Management/internal/audit"
	"github.com/Hariprasath006/Campus-Resource-Management/pkg/db"
)

const activeSlotConstraint = "bookings_active_slot_key"

const bookingColumns = `id, user_id, user_name, resource_id, booking_date::text, time_slot, status, created_at, updated_at`

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	if err := row.Scan(&b.ID, &b.UserID, &b.UserName, &b.ResourceID, &b.BookingDate, &b.TimeSlot, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(s.db.QueryRow(ctx, q, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, err
}

func (s *PostgresStore) List(ctx context.Context, f Filter) iter.Seq2[Booking, error] {
	q := `
SELECT ` + bookingColumns + `
FROM bookings
WHERE ($1 = '' OR user_id = $1)
  AND ($2 = '' OR resource_id = $2)
  AND ($3 = '' OR status = $3)
ORDER BY seq ASC
`
	return func(yield func(Booking, error) bool) {
		rows, err := s.db.Query(ctx, q, f.UserID, f.ResourceID, string(f.Status))
		if err != nil {
			yield(Booking{}, fmt.Errorf("list bookings: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			b, err := scanBooking(rows)
			if err != nil {
				yield(Booking{}, fmt.Errorf("scan booking: %w", err))
				return
			}
			if !yield(*b, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Booking{}, fmt.Errorf("list bookings: %w", err))
		}
	}
}

func (s *PostgresStore) History(ctx context.Context, bookingID string) ([]audit.Entry, error) {
	entries, err := audit.ListByBooking(ctx, s.db, bookingID)
	if err != nil {
		return nil, fmt.Errorf("booking history: %w", err)
	}
	return entries, nil
}

// Atomically runs fn in one transaction. The slot is serialised with a
// transaction-scoped advisory lock; the partial unique index is the backstop.
func (s *PostgresStore) Atomically(ctx context.Context, slot *SlotKey, fn func(tx Tx) error) error {
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if slot != nil {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, slotLockKey(*slot)); err != nil {
				return fmt.Errorf("lock slot: %w", err)
			}
		}
		return fn(pgTx{tx: tx})
	})
	switch {
	case db.IsUniqueViolation(err, activeSlotConstraint):
		return ErrSlotTaken
	case db.IsLockTimeout(err):
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

// slotLockKey is hashed into the advisory lock id, so it has to be valid
// Postgres text.
func slotLockKey(k SlotKey) string {
	return k.String()
}

type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) BookingsOnSlot(ctx context.Context, slot SlotKey) ([]Booking, error) {
	date, err := time.Parse(dateLayout, slot.BookingDate)
	if err != nil {
		return nil, ValidationError{Code: "BOOKING_DATE_INVALID", Message: "bookingDate must be YYYY-MM-DD"}
	}
	q := `
SELECT ` + bookingColumns + `
FROM bookings
WHERE resource_id = $1 AND booking_date = $2 AND time_slot = $3
ORDER BY seq ASC
`
	rows, err := t.tx.Query(ctx, q, slot.ResourceID, date, slot.TimeSlot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (t pgTx) GetForUpdate(ctx context.Context, id string) (*Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	b, err := scanBooking(t.tx.QueryRow(ctx, q, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lock booking: %w", err)
	}
	return b, err
}

func (t pgTx) Insert(ctx context.Context, b *Booking) error {
	date, err := time.Parse(dateLayout, b.BookingDate)
	if err != nil {
		return ValidationError{Code: "BOOKING_DATE_INVALID", Message: "bookingDate must be YYYY-MM-DD"}
	}
	const q = `
INSERT INTO bookings (id, user_id, user_name, resource_id, booking_date, time_slot, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err = t.tx.Exec(ctx, q, b.ID, b.UserID, b.UserName, b.ResourceID, date, b.TimeSlot, string(b.Status), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, activeSlotConstraint) {
			return ErrSlotTaken
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (t pgTx) UpdateStatus(ctx context.Context, id string, to Status, at time.Time) error {
	const q = `UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`
	tag, err := t.tx.Exec(ctx, q, id, string(to), at)
	if err != nil {
		if db.IsUniqueViolation(err, activeSlotConstraint) {
			return ErrSlotTaken
		}
		return fmt.Errorf("update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t pgTx) Record(ctx context.Context, e audit.Entry) error {
	if err := audit.Insert(ctx, t.tx, e); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}
