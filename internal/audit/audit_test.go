package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	e := New("b-1", ActionForceRejected, "APPROVED", "REJECTED", "A1", "ADMIN", at)

	_, err := uuid.Parse(e.ID)
	require.NoError(t, err)
	assert.Equal(t, Entry{
		ID:         e.ID,
		BookingID:  "b-1",
		Action:     ActionForceRejected,
		FromStatus: "APPROVED",
		ToStatus:   "REJECTED",
		ActorID:    "A1",
		ActorRole:  "ADMIN",
		OccurredAt: at,
	}, e)

	assert.NotEqual(t, e.ID, New("b-1", ActionCreated, "", "PENDING", "U1", "STUDENT", at).ID)
}

func TestMetadata_MatchesHistoryQuery(t *testing.T) {
	// ListByBooking reads metadata->>'from' and metadata->>'to'.
	b, err := json.Marshal(metadata{From: "PENDING", To: "APPROVED"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"PENDING","to":"APPROVED"}`, string(b))
}
