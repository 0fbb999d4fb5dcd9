package booking

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Hariprasath006/Campus-Resource-Management/internal/audit"
	"github.com/Hariprasath006/Campus-Resource-Management/internal/catalog"
	"github.com/Hariprasath006/Campus-Resource-Management/internal/identity"
)

// Catalog is the read side of the resource catalog.
type Catalog interface {
	Get(ctx context.Context, id string) (*catalog.Resource, error)
}

// AdminPolicy decides what happens when an ADMIN creates a booking.
type AdminPolicy string

const (
	AdminPolicyDeny     AdminPolicy = "deny"
	AdminPolicyPending  AdminPolicy = "pending"
	AdminPolicyApproved AdminPolicy = "approved"
)

func ParseAdminPolicy(s string) (AdminPolicy, error) {
	switch p := AdminPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case AdminPolicyDeny, AdminPolicyPending, AdminPolicyApproved:
		return p, nil
	case "":
		return AdminPolicyPending, nil
	default:
		return "", fmt.Errorf("unknown admin booking policy: %s", s)
	}
}

type Service struct {
	store   Store
	catalog Catalog
	policy  AdminPolicy
	log     *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewService(store Store, cat Catalog, policy AdminPolicy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == "" {
		policy = AdminPolicyPending
	}
	return &Service{
		store:   store,
		catalog: cat,
		policy:  policy,
		log:     logger.Named("booking"),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// CreateBooking books a resource slot for actor. The new booking starts
// PENDING, except for ADMIN under AdminPolicyApproved.
func (s *Service) CreateBooking(ctx context.Context, actor identity.Actor, req CreateRequest) (*Booking, error) {
	initial, err := s.initialStatus(actor)
	if err != nil {
		return nil, err
	}
	if req.UserID != "" && strings.TrimSpace(req.UserID) != actor.ID {
		return nil, fmt.Errorf("%w: bookings can only be made for yourself", ErrForbidden)
	}
	req, err = req.Normalize()
	if err != nil {
		return nil, err
	}

	res, err := s.catalog.Get(ctx, req.ResourceID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("%w: resource %s", ErrNotFound, req.ResourceID)
		}
		return nil, fmt.Errorf("load resource: %w", err)
	}
	if !res.Available() {
		return nil, fmt.Errorf("%w: %s is %s", ErrResourceUnavailable, res.Name, res.Status)
	}

	now := s.now()
	b := Booking{
		ID:          s.newID(),
		UserID:      actor.ID,
		UserName:    displayName(actor),
		ResourceID:  req.ResourceID,
		BookingDate: req.BookingDate,
		TimeSlot:    req.TimeSlot,
		Status:      initial,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	slot := b.Slot()

	err = s.store.Atomically(ctx, &slot, func(tx Tx) error {
		avail, err := CheckAvailable(ctx, tx, slot, "")
		if err != nil {
			return err
		}
		if avail == Conflict {
			return ErrSlotTaken
		}
		if err := tx.Insert(ctx, &b); err != nil {
			return err
		}
		return tx.Record(ctx, audit.New(b.ID, audit.ActionCreated, "", string(b.Status), actor.ID, string(actor.Role), now))
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.log.Info("slot taken",
				zap.String("resource_id", slot.ResourceID),
				zap.String("date", slot.BookingDate),
				zap.String("slot", slot.TimeSlot),
				zap.String("actor_id", actor.ID),
			)
		}
		return nil, err
	}

	s.log.Info("booking created",
		zap.String("booking_id", b.ID),
		zap.String("resource_id", b.ResourceID),
		zap.String("status", string(b.Status)),
		zap.String("actor_id", actor.ID),
	)
	return &b, nil
}

func (s *Service) initialStatus(actor identity.Actor) (Status, error) {
	switch actor.Role {
	case identity.RoleStudent, identity.RoleStaff:
		return StatusPending, nil
	case identity.RoleAdmin:
		switch s.policy {
		case AdminPolicyApproved:
			return StatusApproved, nil
		case AdminPolicyPending:
			return StatusPending, nil
		}
		return "", fmt.Errorf("%w: administrators cannot create bookings", ErrForbidden)
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrForbidden, actor.Role)
	}
}

// ListBookings returns a lazy sequence of the bookings matching f. A STUDENT
// sees only their own bookings; an empty filter is narrowed to them.
func (s *Service) ListBookings(ctx context.Context, actor identity.Actor, f Filter) (iter.Seq2[Booking, error], error) {
	if actor.Role == identity.RoleStudent {
		if f.UserID == "" {
			f.UserID = actor.ID
		}
		if f.UserID != actor.ID {
			return nil, fmt.Errorf("%w: students can only list their own bookings", ErrForbidden)
		}
	}
	return s.store.List(ctx, f), nil
}

func (s *Service) GetBooking(ctx context.Context, actor identity.Actor, id string) (*Booking, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == identity.RoleStudent && b.UserID != actor.ID {
		return nil, fmt.Errorf("%w: booking belongs to another user", ErrForbidden)
	}
	return b, nil
}

// ChangeStatus moves a booking along the lifecycle. The decision is made
// against the locked row, so of two racing requests the loser is judged on
// the winner's result.
func (s *Service) ChangeStatus(ctx context.Context, actor identity.Actor, id string, to Status) (*Booking, error) {
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Re-entering an active status competes for the slot; slot keys never
	// change, so the unlocked read is enough to pick the lock.
	var slot *SlotKey
	if to.Active() {
		k := cur.Slot()
		slot = &k
	}

	var (
		updated Booking
		from    Status
	)
	err = s.store.Atomically(ctx, slot, func(tx Tx) error {
		b, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := Authorize(actor, *b, to); err != nil {
			return err
		}
		if to.Active() && !b.Status.Active() {
			avail, err := CheckAvailable(ctx, tx, b.Slot(), b.ID)
			if err != nil {
				return err
			}
			if avail == Conflict {
				return ErrSlotTaken
			}
		}

		now := s.now()
		if err := tx.UpdateStatus(ctx, b.ID, to, now); err != nil {
			return err
		}
		if err := tx.Record(ctx, audit.New(b.ID, auditAction(b.Status, to), string(b.Status), string(to), actor.ID, string(actor.Role), now)); err != nil {
			return err
		}

		from = b.Status
		updated = *b
		updated.Status = to
		updated.UpdatedAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrForbidden) || errors.Is(err, ErrInvalidTransition) {
			s.log.Debug("transition denied",
				zap.String("booking_id", id),
				zap.String("to", string(to)),
				zap.String("actor_id", actor.ID),
				zap.String("actor_role", string(actor.Role)),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.log.Info("booking status changed",
		zap.String("booking_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", actor.ID),
	)
	return &updated, nil
}

// History returns the audit trail of a booking, oldest first. Visibility is
// the same as GetBooking.
func (s *Service) History(ctx context.Context, actor identity.Actor, id string) ([]audit.Entry, error) {
	if _, err := s.GetBooking(ctx, actor, id); err != nil {
		return nil, err
	}
	entries, err := s.store.History(ctx, id)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return entries, nil
}

func displayName(actor identity.Actor) string {
	name := strings.TrimSpace(actor.Name)
	if !storableText(name) {
		return ""
	}
	return name
}
