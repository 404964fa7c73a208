package booking

import (
	"time"

	"fitclass/internal/schedule"
	"fitclass/internal/scoped"
)

type Status string

const (
	StatusConfirmed  Status = "CONFIRMED"
	StatusWaitlisted Status = "WAITLISTED"
	StatusCancelled  Status = "CANCELLED"
	StatusCompleted  Status = "COMPLETED"
	StatusNoShow     Status = "NO_SHOW"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

type Booking struct {
	scoped.Record
	MemberID           string     `db:"member_id" json:"member_id"`
	ScheduleID         string     `db:"schedule_id" json:"schedule_id"`
	Status             Status     `db:"status" json:"status"`
	CreditsUsed        int        `db:"credits_used" json:"credits_used"`
	MembershipID       *string    `db:"membership_id" json:"membership_id,omitempty"`
	Notes              *string    `db:"notes" json:"notes,omitempty"`
	CheckedInAt        *time.Time `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CheckedOutAt       *time.Time `db:"checked_out_at" json:"checked_out_at,omitempty"`
	CancelledAt        *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancellationReason *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
}

// Seats is what the engine needs to know about a locked schedule instance.
type Seats struct {
	ScheduleID string
	GymID      string
	Status     schedule.Status
	Capacity   int
	CreditCost int
	EndTime    time.Time
}

type CancelResult struct {
	Booking *Booking `json:"booking"`
	// Promoted is the waitlisted booking confirmed into the freed seat.
	Promoted *Booking `json:"promoted,omitempty"`
}

type CreateBookingRequest struct {
	// MemberID lets staff book on a member's behalf. Ignored for members.
	MemberID string  `json:"member_id,omitempty"`
	Notes    *string `json:"notes,omitempty" binding:"omitempty,max=500"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}
