package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fitclass/internal/db"
	"fitclass/internal/membership"
	"fitclass/internal/schedule"
	"fitclass/internal/scoped"

	"github.com/jmoiron/sqlx"
)

var Table = scoped.Table{Name: "bookings", Kind: scoped.GymScoped, Entity: "booking"}

const bookingColumns = `id, organisation_id, gym_id, member_id, schedule_id, status, credits_used,
	membership_id, notes, checked_in_at, checked_out_at, cancelled_at, cancellation_reason,
	created_at, updated_at`

type PostgresRepository struct {
	db    *sqlx.DB
	store *scoped.Store
}

func NewRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db, store: scoped.NewStore(db)}
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Booking, error) {
	return get(ctx, r.store, id, false)
}

func (r *PostgresRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]Booking, error) {
	bookings := []Booking{}
	err := r.store.Select(ctx, &bookings, Table, scoped.Query{
		Columns: bookingColumns,
		Where:   "schedule_id = ?",
		Args:    []any{scheduleID},
		OrderBy: "created_at, id",
	})
	return bookings, err
}

func (r *PostgresRepository) ListByMember(ctx context.Context, memberID string) ([]Booking, error) {
	bookings := []Booking{}
	err := r.store.Select(ctx, &bookings, Table, scoped.Query{
		Columns: bookingColumns,
		Where:   "member_id = ?",
		Args:    []any{memberID},
		OrderBy: "created_at DESC, id",
	})
	return bookings, err
}

func (r *PostgresRepository) ListOverdue(ctx context.Context, cutoff time.Time) ([]Booking, error) {
	f, err := scoped.Current(ctx, scoped.OrgScoped)
	if err != nil {
		return nil, err
	}

	bookings := []Booking{}
	err = r.store.Select(ctx, &bookings, Table, scoped.Query{
		Columns: bookingColumns,
		Where: `status = 'CONFIRMED' AND checked_in_at IS NULL AND schedule_id IN (
			SELECT id FROM schedule_instances WHERE organisation_id = ? AND end_time <= ?)`,
		Args:    []any{f.OrganisationID, cutoff},
		OrderBy: "created_at, id",
	})
	return bookings, err
}

func (r *PostgresRepository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	err := scoped.Transact(ctx, r.db, func(s *scoped.Store) error {
		return fn(&postgresTx{store: s})
	})
	if db.IsRetryable(err) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

type postgresTx struct {
	store *scoped.Store
}

func (t *postgresTx) Get(ctx context.Context, id string) (*Booking, error) {
	return get(ctx, t.store, id, false)
}

func (t *postgresTx) GetForUpdate(ctx context.Context, id string) (*Booking, error) {
	return get(ctx, t.store, id, true)
}

func (t *postgresTx) LockSchedule(ctx context.Context, scheduleID string) (*Seats, error) {
	st := schedule.NewTx(t.store)
	inst, err := st.GetInstanceForUpdate(ctx, scheduleID)
	if errors.Is(err, schedule.ErrNotFound) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, err
	}
	class, err := st.GetClass(ctx, inst.ClassID)
	if err != nil {
		return nil, fmt.Errorf("load class of schedule %s: %w", scheduleID, err)
	}
	return &Seats{
		ScheduleID: inst.ID,
		GymID:      inst.GymID,
		Status:     inst.Status,
		Capacity:   inst.EffectiveCapacity(class),
		CreditCost: class.CreditCost,
		EndTime:    inst.EndTime,
	}, nil
}

func (t *postgresTx) HasActiveBooking(ctx context.Context, scheduleID, memberID string) (bool, error) {
	var n int
	err := t.store.Get(ctx, &n, Table, scoped.Query{
		Columns: "COUNT(*)",
		Where:   "schedule_id = ? AND member_id = ? AND status <> 'CANCELLED'",
		Args:    []any{scheduleID, memberID},
	})
	return n > 0, err
}

func (t *postgresTx) CountConfirmed(ctx context.Context, scheduleID string) (int, error) {
	var n int
	err := t.store.Get(ctx, &n, Table, scoped.Query{
		Columns: "COUNT(*)",
		Where:   "schedule_id = ? AND status = 'CONFIRMED'",
		Args:    []any{scheduleID},
	})
	return n, err
}

func (t *postgresTx) Waitlist(ctx context.Context, scheduleID string) ([]Booking, error) {
	bookings := []Booking{}
	err := t.store.Select(ctx, &bookings, Table, scoped.Query{
		Columns: bookingColumns,
		Where:   "schedule_id = ? AND status = 'WAITLISTED'",
		Args:    []any{scheduleID},
		OrderBy: "created_at, id",
	})
	return bookings, err
}

func (t *postgresTx) Insert(ctx context.Context, b *Booking) error {
	err := t.store.Insert(ctx, Table, b,
		"id", "organisation_id", "gym_id", "member_id", "schedule_id", "status", "credits_used",
		"membership_id", "notes", "created_at", "updated_at")
	if db.IsUniqueViolation(err) {
		return ErrDuplicateBooking
	}
	return err
}

func (t *postgresTx) Update(ctx context.Context, b *Booking) error {
	n, err := t.store.Update(ctx, Table,
		`status = ?, credits_used = ?, membership_id = ?, checked_in_at = ?, checked_out_at = ?,
		cancelled_at = ?, cancellation_reason = ?, updated_at = ?`,
		[]any{b.Status, b.CreditsUsed, b.MembershipID, b.CheckedInAt, b.CheckedOutAt,
			b.CancelledAt, b.CancellationReason, b.UpdatedAt},
		"id = ?", b.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *postgresTx) Credits() membership.CreditLedger {
	return membership.NewLedger(t.store)
}

func get(ctx context.Context, s *scoped.Store, id string, forUpdate bool) (*Booking, error) {
	var b Booking
	err := s.Get(ctx, &b, Table, scoped.Query{
		Columns:   bookingColumns,
		Where:     "id = ?",
		Args:      []any{id},
		ForUpdate: forUpdate,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
