// Package audit records the lifecycle history of bookings. Entries are written
// in the same transaction as the state change they describe and are never
// updated or deleted.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Action string

const (
	ActionCreated              Action = "CREATED"
	ActionStatusChanged        Action = "STATUS_CHANGED"
	ActionForceRejected        Action = "FORCE_REJECTED"
	ActionRejectUndone         Action = "REJECT_UNDONE"
	ActionCancellationApproved Action = "CANCELLATION_APPROVED"
	ActionCancellationDenied   Action = "CANCELLATION_DENIED"
)

type Entry struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"bookingId"`
	Action     Action    `json:"action"`
	FromStatus string    `json:"fromStatus,omitempty"`
	ToStatus   string    `json:"toStatus"`
	ActorID    string    `json:"actorId"`
	ActorRole  string    `json:"actorRole"`
	OccurredAt time.Time `json:"occurredAt"`
}

// New fills in the id of an entry about to be recorded.
func New(bookingID string, action Action, from, to, actorID, actorRole string, at time.Time) Entry {
	return Entry{
		ID:         uuid.NewString(),
		BookingID:  bookingID,
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		ActorRole:  actorRole,
		OccurredAt: at,
	}
}

// metadata is the jsonb payload of an audit row.
type metadata struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func Insert(ctx context.Context, tx pgx.Tx, e Entry) error {
	b, err := json.Marshal(metadata{From: e.FromStatus, To: e.ToStatus})
	if err != nil {
		return fmt.Errorf("encode audit metadata: %w", err)
	}
	const q = `
INSERT INTO booking_audit (id, booking_id, action, actor_id, actor_role, occurred_at, metadata)
VALUES ($1, $2, $3, $4, $5, $6, CAST($7 AS jsonb))
`
	_, err = tx.Exec(ctx, q, e.ID, e.BookingID, string(e.Action), e.ActorID, e.ActorRole, e.OccurredAt, string(b))
	return err
}

type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func ListByBooking(ctx context.Context, db Querier, bookingID string) ([]Entry, error) {
	const q = `
SELECT id, booking_id, action, COALESCE(metadata->>'from', ''), COALESCE(metadata->>'to', ''),
       actor_id, actor_role, occurred_at
FROM booking_audit
WHERE booking_id = $1
ORDER BY seq ASC
`
	rows, err := db.Query(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.BookingID, &e.Action, &e.FromStatus, &e.ToStatus, &e.ActorID, &e.ActorRole, &e.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
