package booking

import (
	"context"
	"time"

	"fitclass/internal/membership"
)

type Repository interface {
	Get(ctx context.Context, id string) (*Booking, error)
	ListBySchedule(ctx context.Context, scheduleID string) ([]Booking, error)
	ListByMember(ctx context.Context, memberID string) ([]Booking, error)
	// ListOverdue returns CONFIRMED bookings never checked in whose schedule
	// ended at or before cutoff.
	ListOverdue(ctx context.Context, cutoff time.Time) ([]Booking, error)
	// InTx runs fn in one transaction. Failures worth retrying are reported
	// wrapping ErrTransient.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	Get(ctx context.Context, id string) (*Booking, error)
	GetForUpdate(ctx context.Context, id string) (*Booking, error)
	// LockSchedule holds the schedule instance row until the transaction
	// ends. Every capacity decision is made under it.
	LockSchedule(ctx context.Context, scheduleID string) (*Seats, error)
	HasActiveBooking(ctx context.Context, scheduleID, memberID string) (bool, error)
	CountConfirmed(ctx context.Context, scheduleID string) (int, error)
	// Waitlist returns WAITLISTED bookings oldest first, ties by ID.
	Waitlist(ctx context.Context, scheduleID string) ([]Booking, error)
	Insert(ctx context.Context, b *Booking) error
	Update(ctx context.Context, b *Booking) error
	// Credits is the membership ledger bound to the same transaction.
	Credits() membership.CreditLedger
}
