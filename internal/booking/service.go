package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitclass/internal/events"
	"fitclass/internal/logger"
	"fitclass/internal/membership"
	"fitclass/internal/metrics"
	"fitclass/internal/schedule"

	"github.com/google/uuid"
)

type Service interface {
	CreateBooking(ctx context.Context, memberID, scheduleID string, notes *string) (*Booking, error)
	CancelBooking(ctx context.Context, id, reason string) (*CancelResult, error)
	CheckIn(ctx context.Context, id string) (*Booking, error)
	CheckOut(ctx context.Context, id string) (*Booking, error)
	MarkNoShow(ctx context.Context, id string) (*Booking, error)
	GetBooking(ctx context.Context, id string) (*Booking, error)
	ListBySchedule(ctx context.Context, scheduleID string) ([]Booking, error)
	ListByMember(ctx context.Context, memberID string) ([]Booking, error)
}

// Engine runs the booking state machine. Capacity and waitlist decisions are
// made inside one repository transaction holding the schedule lock.
type Engine struct {
	repo      Repository
	publisher events.Publisher
	now       func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func NewEngine(repo Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:      repo,
		publisher: events.Nop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// inTx retries fn once when storage reports a transient failure. fn must be
// safe to run again from scratch.
func (e *Engine) inTx(ctx context.Context, op string, fn func(tx Tx) error) error {
	err := e.repo.InTx(ctx, fn)
	if !errors.Is(err, ErrTransient) {
		return err
	}
	metrics.RecordStorageRetry(op)
	logger.FromContext(ctx).Warn("retrying after transient storage failure", "operation", op, "error", err)
	return e.repo.InTx(ctx, fn)
}

// CreateBooking confirms the member into a free seat, charging the class's
// credit cost, or waitlists them when the class is full.
func (e *Engine) CreateBooking(ctx context.Context, memberID, scheduleID string, notes *string) (*Booking, error) {
	var b *Booking
	err := e.inTx(ctx, "create_booking", func(tx Tx) error {
		seats, err := tx.LockSchedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		if seats.Status != schedule.StatusScheduled {
			return ErrScheduleNotFound
		}

		exists, err := tx.HasActiveBooking(ctx, scheduleID, memberID)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateBooking
		}

		confirmed, err := tx.CountConfirmed(ctx, scheduleID)
		if err != nil {
			return err
		}

		now := e.now().UTC()
		b = &Booking{
			MemberID:   memberID,
			ScheduleID: scheduleID,
			Status:     StatusWaitlisted,
			Notes:      notes,
		}
		b.ID = uuid.NewString()
		b.GymID = seats.GymID
		b.CreatedAt = now
		b.UpdatedAt = now

		if confirmed < seats.Capacity {
			if err := charge(ctx, tx, b, seats.CreditCost); err != nil {
				return err
			}
			b.Status = StatusConfirmed
		}
		return tx.Insert(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordBooking(string(b.Status))
	logger.FromContext(ctx).Info("booking created", "booking_id", b.ID, "schedule_id", scheduleID, "member_id", memberID, "status", b.Status)
	if b.Status == StatusConfirmed {
		e.publish(ctx, events.BookingConfirmed, b)
	} else {
		e.publish(ctx, events.BookingWaitlisted, b)
	}
	return b, nil
}

// CancelBooking cancels the booking and, when it held a seat, refunds its
// credits and offers the seat to the head of the waitlist.
func (e *Engine) CancelBooking(ctx context.Context, id, reason string) (*CancelResult, error) {
	var (
		result   *CancelResult
		previous Status
	)
	err := e.inTx(ctx, "cancel_booking", func(tx Tx) error {
		result = nil

		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		seats, err := tx.LockSchedule(ctx, current.ScheduleID)
		if err != nil {
			return err
		}
		b, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.Status.Terminal() {
			return invalidState(b, "cancel", "")
		}
		if b.CheckedInAt != nil {
			return invalidState(b, "cancel", "already checked in")
		}

		previous = b.Status
		now := e.now().UTC()
		b.Status = StatusCancelled
		b.CancelledAt = &now
		if reason != "" {
			b.CancellationReason = &reason
		}
		b.UpdatedAt = now

		if previous == StatusConfirmed {
			if err := refund(ctx, tx, b); err != nil {
				return err
			}
		}
		if err := tx.Update(ctx, b); err != nil {
			return err
		}
		result = &CancelResult{Booking: b}

		if previous != StatusConfirmed || seats.Status != schedule.StatusScheduled {
			return nil
		}
		result.Promoted, err = e.promote(ctx, tx, seats)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordBookingCancellation(string(previous))
	logger.FromContext(ctx).Info("booking cancelled", "booking_id", id, "previous_status", previous)
	e.publish(ctx, events.BookingCancelled, result.Booking)
	if result.Promoted != nil {
		e.publish(ctx, events.BookingPromoted, result.Promoted)
	}
	return result, nil
}

// promote confirms the oldest waitlisted booking if a seat is free. It makes a
// single attempt: when the member cannot pay, they stay waitlisted.
func (e *Engine) promote(ctx context.Context, tx Tx, seats *Seats) (*Booking, error) {
	confirmed, err := tx.CountConfirmed(ctx, seats.ScheduleID)
	if err != nil {
		return nil, err
	}
	if confirmed >= seats.Capacity {
		return nil, nil
	}

	waitlist, err := tx.Waitlist(ctx, seats.ScheduleID)
	if err != nil {
		return nil, err
	}
	if len(waitlist) == 0 {
		metrics.RecordPromotion("empty")
		return nil, nil
	}

	next := waitlist[0]
	if err := charge(ctx, tx, &next, seats.CreditCost); err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			metrics.RecordPromotion("insufficient_credits")
			logger.FromContext(ctx).Info("waitlist promotion skipped", "booking_id", next.ID, "member_id", next.MemberID, "error", err)
			return nil, nil
		}
		return nil, err
	}

	next.Status = StatusConfirmed
	next.UpdatedAt = e.now().UTC()
	if err := tx.Update(ctx, &next); err != nil {
		return nil, err
	}
	metrics.RecordPromotion("promoted")
	return &next, nil
}

func (e *Engine) CheckIn(ctx context.Context, id string) (*Booking, error) {
	b, err := e.attend(ctx, "check_in", id, func(b *Booking, _ *Seats, now time.Time) error {
		if b.Status != StatusConfirmed {
			return invalidState(b, "check in", "")
		}
		if b.CheckedInAt != nil {
			return invalidState(b, "check in", "already checked in")
		}
		b.CheckedInAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, events.BookingCheckedIn, b)
	return b, nil
}

func (e *Engine) CheckOut(ctx context.Context, id string) (*Booking, error) {
	b, err := e.attend(ctx, "check_out", id, func(b *Booking, _ *Seats, now time.Time) error {
		if b.Status != StatusConfirmed || b.CheckedInAt == nil {
			return invalidState(b, "check out", "not checked in")
		}
		b.CheckedOutAt = &now
		b.Status = StatusCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, events.BookingCompleted, b)
	return b, nil
}

// MarkNoShow closes a CONFIRMED booking whose member never checked in once
// the class has ended. Credits are not refunded.
func (e *Engine) MarkNoShow(ctx context.Context, id string) (*Booking, error) {
	b, err := e.attend(ctx, "no_show", id, func(b *Booking, seats *Seats, now time.Time) error {
		if b.Status != StatusConfirmed {
			return invalidState(b, "mark no-show", "")
		}
		if b.CheckedInAt != nil {
			return invalidState(b, "mark no-show", "member checked in")
		}
		if now.Before(seats.EndTime) {
			return invalidState(b, "mark no-show", "class has not ended")
		}
		b.Status = StatusNoShow
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, events.BookingNoShow, b)
	return b, nil
}

// attend applies an attendance transition. Locks are taken in the same order
// as cancellation: schedule first, then booking.
func (e *Engine) attend(ctx context.Context, op, id string, apply func(b *Booking, seats *Seats, now time.Time) error) (*Booking, error) {
	var b *Booking
	err := e.inTx(ctx, op, func(tx Tx) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		seats, err := tx.LockSchedule(ctx, current.ScheduleID)
		if err != nil {
			return err
		}
		b, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		now := e.now().UTC()
		if err := apply(b, seats, now); err != nil {
			return err
		}
		b.UpdatedAt = now
		return tx.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordAttendance(op)
	logger.FromContext(ctx).Info("booking attendance updated", "booking_id", id, "event", op, "status", b.Status)
	return b, nil
}

func (e *Engine) GetBooking(ctx context.Context, id string) (*Booking, error) {
	return e.repo.Get(ctx, id)
}

func (e *Engine) ListBySchedule(ctx context.Context, scheduleID string) ([]Booking, error) {
	return e.repo.ListBySchedule(ctx, scheduleID)
}

func (e *Engine) ListByMember(ctx context.Context, memberID string) ([]Booking, error) {
	return e.repo.ListByMember(ctx, memberID)
}

func (e *Engine) publish(ctx context.Context, t events.Type, b *Booking) {
	err := e.publisher.Publish(ctx, events.Event{
		Type:           t,
		BookingID:      b.ID,
		OrganisationID: b.OrganisationID,
		GymID:          b.GymID,
		MemberID:       b.MemberID,
		ScheduleID:     b.ScheduleID,
		Status:         string(b.Status),
		OccurredAt:     e.now().UTC(),
	})
	if err != nil {
		logger.FromContext(ctx).Warn("failed to publish booking event", "type", t, "booking_id", b.ID, "error", err)
	}
}

// charge deducts cost from an active membership valid at b's gym and records
// it on b. A class that costs nothing needs no membership.
func charge(ctx context.Context, tx Tx, b *Booking, cost int) error {
	if cost == 0 {
		return nil
	}

	ledger := tx.Credits()
	m, err := ledger.FindActiveMembership(ctx, b.MemberID, b.GymID, cost)
	if errors.Is(err, membership.ErrNoActiveMembership) {
		return fmt.Errorf("%w: %w", ErrInsufficientCredits, err)
	}
	if err != nil {
		return err
	}
	if err := ledger.DeductClassCredit(ctx, m.ID, cost); err != nil {
		return err
	}

	b.MembershipID = &m.ID
	b.CreditsUsed = cost
	return nil
}

func refund(ctx context.Context, tx Tx, b *Booking) error {
	if b.MembershipID == nil || b.CreditsUsed == 0 {
		return nil
	}
	err := tx.Credits().RefundClassCredit(ctx, *b.MembershipID, b.CreditsUsed)
	if errors.Is(err, membership.ErrMembershipNotFound) {
		logger.FromContext(ctx).Warn("refund skipped, membership gone", "booking_id", b.ID, "membership_id", *b.MembershipID)
		return nil
	}
	return err
}
