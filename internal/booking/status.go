package booking

import "fmt"

type Status string

const (
	StatusPending               Status = "PENDING"
	StatusApproved              Status = "APPROVED"
	StatusRejected              Status = "REJECTED"
	StatusCancellationRequested Status = "CANCELLATION_REQUESTED"
	StatusCancelled             Status = "CANCELLED"
)

// statusOrder is the order NextStatuses reports in.
var statusOrder = []Status{
	StatusPending,
	StatusApproved,
	StatusRejected,
	StatusCancellationRequested,
	StatusCancelled,
}

// ParseStatus accepts only the exact wire values.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusCancellationRequested, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

// Active reports whether a booking in this status holds its slot.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved
}
