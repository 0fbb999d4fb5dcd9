// Package booking is the reservation lifecycle engine: the status machine,
// who may move a booking along it, and the rule that a resource slot holds
// at most one active booking.
package booking

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	dateLayout     = "2006-01-02"
	maxTimeSlotLen = 64
)

type Booking struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName,omitempty"`
	ResourceID  string    `json:"resourceId"`
	BookingDate string    `json:"bookingDate"`
	TimeSlot    string    `json:"timeSlot"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (b Booking) Slot() SlotKey {
	return SlotKey{ResourceID: b.ResourceID, BookingDate: b.BookingDate, TimeSlot: b.TimeSlot}
}

// SlotKey identifies a bookable unit. TimeSlot is compared byte for byte;
// "10:00-11:00" and "10:00 - 11:00" are different slots.
type SlotKey struct {
	ResourceID  string
	BookingDate string
	TimeSlot    string
}

// String is the lock key for the slot. The resource id is length-prefixed and
// the date has a fixed layout, so distinct slots never share a key. The key is
// plain text and can be bound as a Postgres text parameter.
func (k SlotKey) String() string {
	return strconv.Itoa(len(k.ResourceID)) + ":" + k.ResourceID + "|" + k.BookingDate + "|" + k.TimeSlot
}

type Filter struct {
	UserID     string
	ResourceID string
	Status     Status
}

func (f Filter) Match(b Booking) bool {
	if f.UserID != "" && b.UserID != f.UserID {
		return false
	}
	if f.ResourceID != "" && b.ResourceID != f.ResourceID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	return true
}

type CreateRequest struct {
	UserID      string `json:"userId,omitempty"`
	ResourceID  string `json:"resourceId"`
	BookingDate string `json:"bookingDate"`
	TimeSlot    string `json:"timeSlot"`
}

// Normalize validates r. The date is canonicalised to YYYY-MM-DD; the slot
// label is kept exactly as given.
func (r CreateRequest) Normalize() (CreateRequest, error) {
	r.UserID = strings.TrimSpace(r.UserID)
	r.ResourceID = strings.TrimSpace(r.ResourceID)
	if r.ResourceID == "" {
		return r, ValidationError{Code: "RESOURCE_ID_REQUIRED", Message: "resourceId is required"}
	}
	if !storableText(r.ResourceID) {
		return r, ValidationError{Code: "RESOURCE_ID_INVALID", Message: "resourceId contains invalid characters"}
	}

	date := strings.TrimSpace(r.BookingDate)
	if date == "" {
		return r, ValidationError{Code: "BOOKING_DATE_REQUIRED", Message: "bookingDate is required"}
	}
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return r, ValidationError{Code: "BOOKING_DATE_INVALID", Message: "bookingDate must be YYYY-MM-DD"}
	}
	r.BookingDate = d.Format(dateLayout)

	if strings.TrimSpace(r.TimeSlot) == "" {
		return r, ValidationError{Code: "TIME_SLOT_REQUIRED", Message: "timeSlot is required"}
	}
	if len(r.TimeSlot) > maxTimeSlotLen {
		return r, ValidationError{Code: "TIME_SLOT_INVALID", Message: "timeSlot is too long"}
	}
	if !storableText(r.TimeSlot) {
		return r, ValidationError{Code: "TIME_SLOT_INVALID", Message: "timeSlot contains invalid characters"}
	}
	return r, nil
}

// storableText rejects what a Postgres text column cannot hold.
func storableText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}
