package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fitclass/internal/scoped"

	"github.com/jmoiron/sqlx"
)

var Table = scoped.Table{Name: "memberships", Kind: scoped.OrgScoped, Entity: "membership", OptionalGym: true}

const membershipColumns = `id, organisation_id, COALESCE(gym_id, '') AS gym_id, member_id, status,
	credits_remaining, credits_used, valid_from, valid_until, created_at, updated_at`

type PostgresRepository struct {
	store *scoped.Store
}

// NewRepository binds the ledger to q, either the pool or an open transaction.
func NewRepository(q sqlx.ExtContext) *PostgresRepository {
	return &PostgresRepository{store: scoped.NewStore(q)}
}

// NewLedger reuses a Store that is already bound to a transaction.
func NewLedger(s *scoped.Store) *PostgresRepository {
	return &PostgresRepository{store: s}
}

// FindActiveMembership picks the membership a class at gymID costing credits
// would be charged to: valid at that gym and able to cover the cost,
// gym-specific before organisation-wide, soonest expiry first.
func (r *PostgresRepository) FindActiveMembership(ctx context.Context, memberID, gymID string, credits int) (*Membership, error) {
	var m Membership
	err := r.store.Get(ctx, &m, Table, scoped.Query{
		Columns: membershipColumns,
		Where: `member_id = ? AND status = 'active'
		AND valid_from <= NOW() AND valid_until >= NOW()
		AND (credits_remaining IS NULL OR credits_remaining >= ?)
		AND (gym_id IS NULL OR gym_id = ?)`,
		Args:    []any{memberID, max(credits, 1), gymID},
		OrderBy: "gym_id NULLS LAST, valid_until",
		Limit:   1,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveMembership
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// DeductClassCredit charges credits in a single conditional UPDATE, so two
// concurrent deductions can never overdraw the balance.
func (r *PostgresRepository) DeductClassCredit(ctx context.Context, membershipID string, credits int) error {
	if credits < 0 {
		return fmt.Errorf("deduct %d credits: %w", credits, ErrInvalidMembership)
	}

	n, err := r.store.Update(ctx, Table,
		`credits_remaining = credits_remaining - ?, credits_used = credits_used + ?, updated_at = NOW()`,
		[]any{credits, credits},
		`id = ? AND status = 'active' AND valid_until >= NOW() AND (credits_remaining IS NULL OR credits_remaining >= ?)`,
		membershipID, credits,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientCredits
	}
	return nil
}

func (r *PostgresRepository) RefundClassCredit(ctx context.Context, membershipID string, credits int) error {
	n, err := r.store.Update(ctx, Table,
		`credits_remaining = credits_remaining + ?, credits_used = GREATEST(credits_used - ?, 0), updated_at = NOW()`,
		[]any{credits, credits},
		`id = ?`,
		membershipID,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, m *Membership) error {
	return r.store.Insert(ctx, Table, m,
		"id", "organisation_id", "gym_id", "member_id", "status",
		"credits_remaining", "credits_used", "valid_from", "valid_until", "created_at", "updated_at")
}

func (r *PostgresRepository) ListByMember(ctx context.Context, memberID string) ([]Membership, error) {
	ms := []Membership{}
	err := r.store.Select(ctx, &ms, Table, scoped.Query{
		Columns: membershipColumns,
		Where:   "member_id = ?",
		Args:    []any{memberID},
		OrderBy: "created_at DESC",
	})
	return ms, err
}
