package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Hariprasath006/Campus-Resource-Management/internal/audit"
	"github.com/Hariprasath006/Campus-Resource-Management/internal/catalog"
	"github.com/Hariprasath006/Campus-Resource-Management/internal/identity"
)

var (
	u1    = identity.Actor{ID: "U1", Role: identity.RoleStudent}
	u2    = identity.Actor{ID: "U2", Role: identity.RoleStudent}
	staff = identity.Actor{ID: "S1", Role: identity.RoleStaff}
	admin = identity.Actor{ID: "A1", Role: identity.RoleAdmin}
)

var slotR1 = CreateRequest{ResourceID: "R1", BookingDate: "2024-06-01", TimeSlot: "10:00-11:00"}

type fixture struct {
	svc   *Service
	store *MemoryStore
	cat   *catalog.MemoryRepository
}

func newFixture(t *testing.T, policy AdminPolicy) fixture {
	t.Helper()
	ctx := context.Background()

	cat := catalog.NewMemoryRepository()
	require.NoError(t, cat.Create(ctx, &catalog.Resource{ID: "R1", Name: "Physics Lab", Type: "LAB", Status: catalog.StatusAvailable}))
	require.NoError(t, cat.Create(ctx, &catalog.Resource{ID: "R2", Name: "Main Hall", Type: "HALL", Status: catalog.StatusMaintenance}))

	store := NewMemoryStore()
	svc := NewService(store, cat, policy, zap.NewNop())

	clock := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	return fixture{svc: svc, store: store, cat: cat}
}

func collect(t *testing.T, seq func(func(Booking, error) bool)) []Booking {
	t.Helper()
	var out []Booking
	for b, err := range seq {
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

func TestScenarioA_SecondBookingForSameSlotIsTaken(t *testing.T) {
	f := newFixture(t, AdminPolicyPending)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, u1, slotR1)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, "U1", b.UserID)
	assert.NotEmpty(t, b.ID)

	_, err = f.svc.CreateBooking(ctx, u2, slotR1)
	assert.ErrorIs(t, err, ErrSlotTaken)

	all := collect(t, f.store.List(ctx, Filter{}))
	assert.Len(t, all, 1)
}

func TestCreateBooking_RecordsBookerName(t *testing.T) {
	f := newFixture(t, AdminPolicyPending)
	ctx := context.Background()

	named := identity.Actor{ID: "U1", Role: identity.RoleStudent, Name: "  Asha Raman "}
	b, err := f.svc.CreateBooking(ctx, named, slotR1)
	require.NoError(t, err)
	assert.Equal(t, "Asha Raman", b.UserName)

	garbled := identity.Actor{ID: "U2", Role: identity.RoleStudent, Name: "A\x00B"}
	b, err = f.svc.CreateBooking(ctx, garbled, CreateRequest{ResourceID: "R1", BookingDate: "2024-06-02", TimeSlot: "10:00-11:00"})
	require.NoError(t, err)
	assert.Empty(t, b.UserName)
}

func TestScenarioB_ApproveThenCancel(t *testing.T) {
	f := newFixture(t, AdminPolicyPending)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, u1, slotR1)
	require.NoError(t, err)

	got, err := f.svc.ChangeStatus(ctx, staff, b.ID, StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)

	got, err = f.svc.ChangeStatus(ctx, u1, b.ID, StatusCancellationRequested)
	require.NoError(t, err)
	assert.Equal(t, StatusCancellationRequested, got.Status)

	got, err = f.svc.ChangeStatus(ctx, admin, b.ID, StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)

	stored, err := f.store.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)
	assert.Equal(t, b.CreatedAt, stored.CreatedAt)
	assert.True(t, stored.UpdatedAt.After(stored.CreatedAt))

	hist, err := f.svc.History(ctx, u1, b.ID)
	require.NoError(t, err)
	require.Len(t, hist, 4)
	assert.Equal(t, audit.ActionCreated, hist[0].Action)
	assert.Equal(t, audit.ActionStatusChanged, hist[1].Action)
	assert.Equal(t, "S1", hist[1].ActorID)
	assert.Equal(t, audit.ActionStatusChanged, hist[2].Action)
	assert.Equal(t, audit.ActionCancellationApproved, hist[3].Action)
	assert.Equal(t, string(StatusCancellationRequested), hist[3].FromStatus)
	assert.Equal(t, string(StatusCancelled), hist[3].ToStatus)
}

func TestScenarioC_ForceRejectThenUndo(t *testing.T) {
	f := newFixture(t, AdminPolicyPending)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, u1, slotR1)
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(ctx, staff, b.ID, StatusApproved)
	require.NoError(t, err)

	got, err := f.svc.ChangeStatus(ctx, admin, b.ID, StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)

	got, err = f.svc.ChangeStatus(ctx, admin, b.ID, StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)

	hist, err := f.svc.History(ctx, admin, b.ID)
	require.NoError(t, err)
	require.Len(t, hist, 4)
	assert.Equal(t, audit.ActionForceRejected, hist[2].Action)
	assert.Equal(t, audit.ActionRejectUndone, hist[3].Action)
}

func TestCreateBooking_FreedSlotCanBeRebooked(t *testing.T) {
	f := newFixture(t, AdminPolicyPending)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, u1, slotR1)
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(ctx, staff, b.ID, StatusRejected)
	require.NoError(t, err)

	again, err := f.svc.CreateBooking(ctx, u2, slotR1)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, again.Status)
}

func TestCreateBooking_SlotLabelsAreLiteral(t *testing.T) {
	f := newFixture(t, AdminPolicyPending)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, u1, slotR1)
	require.NoError(t, err)

	overlapping := slotR1
	overlapping.TimeSlot = "10:30-11:30"
	_, err = f.svc.CreateBooking(ctx, u2, overlapping)
	assert.NoError(t, err)

	otherDay := slotR1
	otherDay.BookingDate = "2024-06-02"
	_, err = f.svc.CreateBooking(ctx, u2, otherDay)
	assert.NoError(t, err)
}

func TestCreateBooking_Errors(t *testing.T) {
	f := newFixture(t, AdminPolicyPending)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, u1, CreateRequest{ResourceID: "nope", BookingDate: "2024-06-01", TimeSlot: "10:00-11:00"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.CreateBooking(ctx, u1, CreateRequest{ResourceID: "R2", BookingDate: "2024-06-01", TimeSlot: "10:00-11:00"})
	assert.ErrorIs(t, err, ErrResourceUnavailable)

	_, err = f.svc.CreateBooking(ctx, u1, CreateRequest{ResourceID: "R1", BookingDate: "June 1st", TimeSlot: "10:00-11:00"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.CreateBooking(ctx, u1, CreateRequest{ResourceID: "R1", BookingDate: "2024-06-01"})
	assert.ErrorIs(t, err, ErrValidation)

	onBehalf := slotR1
	onBehalf.UserID = "U2"
	_, err = f.svc.CreateBooking(ctx, u1, onBehalf)
	assert.ErrorIs(t, err, ErrForbidden)

	self := slotR1
	self.UserID = "U1"
	_, err = f.svc.CreateBooking(ctx, u1, self)
	assert.NoError(t, err)

	assert.Empty(t, collect(t, f.store.List(ctx, Filter{UserID: "U2"})))
}

func TestCreateBooking_ResourceBackInService(t *testing.T) {
	f := newFixture(t, AdminPolicyPending)
	ctx := context.Background()

	req := CreateRequest{ResourceID: "R2", BookingDate: "2024-06-01", TimeSlot: "10:00-11:00"}
	_, err := f.svc.CreateBooking(ctx, u1, req)
	require.ErrorIs(t, err, ErrResourceUnavailable)

	require.NoError(t, f.cat.Update(ctx, &catalog.Resource{ID: "R2", Name: "Main Hall", Type: "HALL", Status: catalog.StatusAvailable}))
	_, err = f.svc.CreateBooking(ctx, u1, req)
	assert.NoError(t, err)
}

func TestCreateBooking_AdminPolicy(t *testing.T) {
	ctx := context.Background()

	deny := newFixture(t, AdminPolicyDeny)
	_, err := deny.svc.CreateBooking(ctx, admin, slotR1)
	assert.ErrorIs(t, err, ErrForbidden)

	pending := newFixture(t, AdminPolicyPending)
	b, err := pending.svc.CreateBooking(ctx, admin, slotR1)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, b.Status)

	approved := newFixture(t, AdminPolicyApproved)
	b, err = approved.svc.CreateBooking(ctx, admin, slotR1)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, b.Status)

	// An approved admin booking still holds the slot.
	_, err = approved.svc.CreateBooking(ctx, u1, slotR1)
	assert.ErrorIs(t, err, ErrSlotTaken)

	// Staff are never affected by the admin policy.
	b, err = deny.svc.CreateBooking(ctx, staff, slotR1)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, b.Status)
}

func TestParseAdminPolicy(t *testing.T) {
	p, err := ParseAdminPolicy("")
	require.NoError(t, err)
	assert.Equal(t, AdminPolicyPending, p)

	p, err = ParseAdminPolicy(" Approved ")
	require.NoError(t, err)
	assert.Equal(t, AdminPolicyApproved, p)

	_, err = ParseAdminPolicy("sometimes")
	assert.Error(t, err)
}

func TestCreateBooking_ConcurrentSameSlot(t *testing.T) {
	f := newFixture(t, AdminPolicyPending)
	ctx := context.Background()

	const n = 50
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		ok    int
		taken int
		other []error
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			actor := identity.Actor{ID: fmt.Sprintf("student-%d", i), Role: identity.RoleStudent}
			_, err := f.svc.CreateBooking(ctx, actor, slotR1)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrSlotTaken):
				taken++
			default:
				other = append(other, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, taken)
	assert.Len(t, collect(t, f.store.List(ctx, Filter{})), 1)
}

func TestChangeStatus_ConcurrentAdminsOneWins(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t, AdminPolicyPending)
		ctx := context.Background()

		b, err := f.svc.CreateBooking(ctx, u1, slotR1)
		require.NoError(t, err)
		_, err = f.svc.ChangeStatus(ctx, staff, b.ID, StatusApproved)
		require.NoError(t, err)
		_, err = f.svc.ChangeStatus(ctx, u1, b.ID, StatusCancellationRequested)
		require.NoError(t, err)

		targets := []Status{StatusCancelled, StatusApproved}
		errs := make([]error, len(targets))
		var wg sync.WaitGroup
		start := make(chan struct{})
		for j, to := range targets {
			wg.Add(1)
			go func(j int, to Status) {
				defer wg.Done()
				<-start
				_, errs[j] = f.svc.ChangeStatus(ctx, identity.Actor{ID: fmt.Sprintf("admin-%d", j), Role: identity.RoleAdmin}, b.ID, to)
			}(j, to)
		}
		close(start)
		wg.Wait()

		var winners int
		for _, err := range errs {
			if err == nil {
				winners++
				continue
			}
			assert.ErrorIs(t, err, ErrInvalidTransition)
		}
		require.Equal(t, 1, winners)

		stored, err := f.store.Get(ctx, b.ID)
		require.NoError(t, err)
		hist, err := f.store.History(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, hist, 4)
		assert.Equal(t, string(stored.Status), hist[3].ToStatus)
	}
}

func TestChangeStatus_ReactivationRespectsSlot(t *testing.T) {
	f := newFixture(t, AdminPolicyPending)
	ctx := context.Background()

	first, err := f.svc.CreateBooking(ctx, u1, slotR1)
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(ctx, staff, first.ID, StatusRejected)
	require.NoError(t, err)

	second, err := f.svc.CreateBooking(ctx, u2, slotR1)
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, admin, first.ID, StatusApproved)
	assert.ErrorIs(t, err, ErrSlotTaken)

	stored, err := f.store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, stored.Status)

	// Once the slot is released the undo goes through.
	_, err = f.svc.ChangeStatus(ctx, staff, second.ID, StatusRejected)
	require.NoError(t, err)
	got, err := f.svc.ChangeStatus(ctx, admin, first.ID, StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
}

func TestChangeStatus_DenyCancellationAfterSlotRebooked(t *testing.T) {
	f := newFixture(t, AdminPolicyPending)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, u1, slotR1)
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(ctx, staff, b.ID, StatusApproved)
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(ctx, u1, b.ID, StatusCancellationRequested)
	require.NoError(t, err)

	_, err = f.svc.CreateBooking(ctx, u2, slotR1)
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, admin, b.ID, StatusApproved)
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestChangeStatus_RoleGating(t *testing.T) {
	f := newFixture(t, AdminPolicyPending)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, u1, slotR1)
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, u1, b.ID, StatusApproved)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.ChangeStatus(ctx, staff, b.ID, StatusApproved)
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, u2, b.ID, StatusCancellationRequested)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.ChangeStatus(ctx, staff, b.ID, StatusRejected)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.ChangeStatus(ctx, admin, b.ID, StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := f.store.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, stored.Status)

	hist, err := f.store.History(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestChangeStatus_NotFound(t *testing.T) {
	f := newFixture(t, AdminPolicyPending)
	_, err := f.svc.ChangeStatus(context.Background(), admin, "missing", StatusApproved)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListBookings(t *testing.T) {
	f := newFixture(t, AdminPolicyPending)
	ctx := context.Background()

	var ids []string
	for i, actor := range []identity.Actor{u1, u2, u1} {
		req := slotR1
		req.TimeSlot = fmt.Sprintf("%02d:00-%02d:00", 9+i, 10+i)
		b, err := f.svc.CreateBooking(ctx, actor, req)
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	seq, err := f.svc.ListBookings(ctx, staff, Filter{})
	require.NoError(t, err)
	first := collect(t, seq)
	second := collect(t, seq)
	assert.Equal(t, first, second)
	require.Len(t, first, 3)
	for i, b := range first {
		assert.Equal(t, ids[i], b.ID)
	}

	// A student with no filter sees only their own bookings.
	seq, err = f.svc.ListBookings(ctx, u1, Filter{})
	require.NoError(t, err)
	mine := collect(t, seq)
	require.Len(t, mine, 2)
	assert.Equal(t, ids[0], mine[0].ID)
	assert.Equal(t, ids[2], mine[1].ID)

	_, err = f.svc.ListBookings(ctx, u1, Filter{UserID: "U2"})
	assert.ErrorIs(t, err, ErrForbidden)

	seq, err = f.svc.ListBookings(ctx, admin, Filter{UserID: "U2"})
	require.NoError(t, err)
	assert.Len(t, collect(t, seq), 1)
}

func TestListBookings_RestartSeesNewWrites(t *testing.T) {
	f := newFixture(t, AdminPolicyPending)
	ctx := context.Background()

	seq, err := f.svc.ListBookings(ctx, admin, Filter{})
	require.NoError(t, err)
	assert.Empty(t, collect(t, seq))

	_, err = f.svc.CreateBooking(ctx, u1, slotR1)
	require.NoError(t, err)
	assert.Len(t, collect(t, seq), 1)
}

func TestListBookings_StopEarly(t *testing.T) {
	f := newFixture(t, AdminPolicyPending)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		req := slotR1
		req.TimeSlot = fmt.Sprintf("slot-%d", i)
		_, err := f.svc.CreateBooking(ctx, u1, req)
		require.NoError(t, err)
	}

	seq, err := f.svc.ListBookings(ctx, admin, Filter{})
	require.NoError(t, err)
	var seen int
	for _, err := range seq {
		require.NoError(t, err)
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestGetBookingAndHistory_Visibility(t *testing.T) {
	f := newFixture(t, AdminPolicyPending)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, u1, slotR1)
	require.NoError(t, err)

	got, err := f.svc.GetBooking(ctx, u1, b.ID)
	require.NoError(t, err)
	assert.Equal(t, *b, *got)

	_, err = f.svc.GetBooking(ctx, u2, b.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.History(ctx, u2, b.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.GetBooking(ctx, staff, b.ID)
	assert.NoError(t, err)

	_, err = f.svc.History(ctx, admin, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
