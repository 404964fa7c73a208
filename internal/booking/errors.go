package booking

import (
	"errors"
	"fmt"

	"fitclass/internal/membership"
)

var (
	ErrNotFound         = errors.New("booking not found")
	ErrScheduleNotFound = errors.New("schedule not found or not open for booking")
	ErrDuplicateBooking = errors.New("member already has a booking for this schedule")
	ErrInvalidState     = errors.New("invalid booking state")
	// ErrTransient marks a storage failure that survived one retry.
	ErrTransient = errors.New("temporary storage failure, try again")

	ErrInsufficientCredits = membership.ErrInsufficientCredits
)

type InvalidStateError struct {
	BookingID string
	Status    Status
	Op        string
	Reason    string
}

func (e *InvalidStateError) Error() string {
	msg := fmt.Sprintf("cannot %s booking %s in status %s", e.Op, e.BookingID, e.Status)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

func invalidState(b *Booking, op, reason string) error {
	return &InvalidStateError{BookingID: b.ID, Status: b.Status, Op: op, Reason: reason}
}
