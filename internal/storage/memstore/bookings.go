package memstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"fitclass/internal/booking"
	"fitclass/internal/membership"
	"fitclass/internal/schedule"
	"fitclass/internal/scoped"
)

// Bookings implements booking.Repository.
type Bookings struct {
	s *Store
}

func (r *Bookings) Get(ctx context.Context, id string) (b *booking.Booking, err error) {
	err = r.s.read(func(st *state) error {
		b, err = st.booking(ctx, id)
		return err
	})
	return b, err
}

func (r *Bookings) ListBySchedule(ctx context.Context, scheduleID string) ([]booking.Booking, error) {
	var out []booking.Booking
	err := r.s.read(func(st *state) (err error) {
		out, err = st.selectBookings(ctx, func(b *booking.Booking) bool { return b.ScheduleID == scheduleID })
		return err
	})
	return out, err
}

func (r *Bookings) ListByMember(ctx context.Context, memberID string) ([]booking.Booking, error) {
	var out []booking.Booking
	err := r.s.read(func(st *state) (err error) {
		out, err = st.selectBookings(ctx, func(b *booking.Booking) bool { return b.MemberID == memberID })
		return err
	})
	// newest first, as the Postgres adapter returns them
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r *Bookings) ListOverdue(ctx context.Context, cutoff time.Time) ([]booking.Booking, error) {
	var out []booking.Booking
	err := r.s.read(func(st *state) error {
		f, err := scoped.Current(ctx, scoped.OrgScoped)
		if err != nil {
			return err
		}
		out, err = st.selectBookings(ctx, func(b *booking.Booking) bool {
			if b.Status != booking.StatusConfirmed || b.CheckedInAt != nil {
				return false
			}
			inst, ok := st.instances[b.ScheduleID]
			return ok && inst.OrganisationID == f.OrganisationID && !inst.EndTime.After(cutoff)
		})
		return err
	})
	return out, err
}

func (r *Bookings) InTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	return r.s.transact(func(st *state) error {
		if r.s.bookingFailures > 0 {
			r.s.bookingFailures--
			return booking.ErrTransient
		}
		return fn(&bookingTx{st: st, now: r.s.now})
	})
}

type bookingTx struct {
	st  *state
	now func() time.Time
}

func (t *bookingTx) Get(ctx context.Context, id string) (*booking.Booking, error) {
	return t.st.booking(ctx, id)
}

func (t *bookingTx) GetForUpdate(ctx context.Context, id string) (*booking.Booking, error) {
	return t.st.booking(ctx, id)
}

func (t *bookingTx) LockSchedule(ctx context.Context, scheduleID string) (*booking.Seats, error) {
	inst, err := t.st.instance(ctx, scheduleID)
	if errors.Is(err, schedule.ErrNotFound) {
		return nil, booking.ErrScheduleNotFound
	}
	if err != nil {
		return nil, err
	}
	class, err := t.st.class(ctx, inst.ClassID)
	if err != nil {
		return nil, err
	}
	return &booking.Seats{
		ScheduleID: inst.ID,
		GymID:      inst.GymID,
		Status:     inst.Status,
		Capacity:   inst.EffectiveCapacity(class),
		CreditCost: class.CreditCost,
		EndTime:    inst.EndTime,
	}, nil
}

func (t *bookingTx) HasActiveBooking(ctx context.Context, scheduleID, memberID string) (bool, error) {
	found, err := t.st.selectBookings(ctx, func(b *booking.Booking) bool {
		return b.ScheduleID == scheduleID && b.MemberID == memberID && b.Status != booking.StatusCancelled
	})
	return len(found) > 0, err
}

func (t *bookingTx) CountConfirmed(ctx context.Context, scheduleID string) (int, error) {
	found, err := t.st.selectBookings(ctx, func(b *booking.Booking) bool {
		return b.ScheduleID == scheduleID && b.Status == booking.StatusConfirmed
	})
	return len(found), err
}

func (t *bookingTx) Waitlist(ctx context.Context, scheduleID string) ([]booking.Booking, error) {
	return t.st.selectBookings(ctx, func(b *booking.Booking) bool {
		return b.ScheduleID == scheduleID && b.Status == booking.StatusWaitlisted
	})
}

func (t *bookingTx) Insert(ctx context.Context, b *booking.Booking) error {
	if err := scoped.Stamp(ctx, booking.Table.Kind, booking.Table.Entity, b); err != nil {
		return err
	}
	// mirrors the partial unique index on (schedule_id, member_id)
	for _, existing := range t.st.bookings {
		if existing.ScheduleID == b.ScheduleID && existing.MemberID == b.MemberID && existing.Status != booking.StatusCancelled {
			return booking.ErrDuplicateBooking
		}
	}
	t.st.bookings[b.ID] = *b
	return nil
}

func (t *bookingTx) Update(ctx context.Context, b *booking.Booking) error {
	existing, err := t.st.booking(ctx, b.ID)
	if err != nil {
		return err
	}
	updated := *b
	updated.Record = existing.Record
	updated.UpdatedAt = b.UpdatedAt
	updated.MemberID = existing.MemberID
	updated.ScheduleID = existing.ScheduleID
	t.st.bookings[b.ID] = updated
	return nil
}

func (t *bookingTx) Credits() membership.CreditLedger {
	return &ledger{st: t.st, now: t.now}
}

func (st *state) booking(ctx context.Context, id string) (*booking.Booking, error) {
	f, err := scoped.Current(ctx, booking.Table.Kind)
	if err != nil {
		return nil, err
	}
	b, ok := st.bookings[id]
	if !ok || !f.Matches(&b.Record) {
		return nil, booking.ErrNotFound
	}
	return &b, nil
}

// selectBookings returns matching bookings in scope, oldest first, ties by ID.
func (st *state) selectBookings(ctx context.Context, match func(*booking.Booking) bool) ([]booking.Booking, error) {
	f, err := scoped.Current(ctx, booking.Table.Kind)
	if err != nil {
		return nil, err
	}
	out := []booking.Booking{}
	for _, b := range st.bookings {
		if f.Matches(&b.Record) && match(&b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
