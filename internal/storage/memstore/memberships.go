package memstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"fitclass/internal/membership"
	"fitclass/internal/scoped"
	"fitclass/internal/tenant"
)

// Memberships implements membership.Repository.
type Memberships struct {
	s *Store
}

func (r *Memberships) Create(ctx context.Context, m *membership.Membership) error {
	return r.s.transact(func(st *state) error {
		if err := scoped.Stamp(ctx, membership.Table.Kind, membership.Table.Entity, m); err != nil {
			return err
		}
		st.memberships[m.ID] = *m
		return nil
	})
}

func (r *Memberships) ListByMember(ctx context.Context, memberID string) ([]membership.Membership, error) {
	out := []membership.Membership{}
	err := r.s.read(func(st *state) error {
		f, err := scoped.Current(ctx, membership.Table.Kind)
		if err != nil {
			return err
		}
		for _, m := range st.memberships {
			if m.MemberID == memberID && f.Matches(&m.Record) {
				out = append(out, m)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r *Memberships) FindActiveMembership(ctx context.Context, memberID, gymID string, credits int) (m *membership.Membership, err error) {
	err = r.s.read(func(st *state) error {
		m, err = (&ledger{st: st, now: r.s.now}).FindActiveMembership(ctx, memberID, gymID, credits)
		return err
	})
	return m, err
}

func (r *Memberships) DeductClassCredit(ctx context.Context, membershipID string, credits int) error {
	return r.s.transact(func(st *state) error {
		return (&ledger{st: st, now: r.s.now}).DeductClassCredit(ctx, membershipID, credits)
	})
}

func (r *Memberships) RefundClassCredit(ctx context.Context, membershipID string, credits int) error {
	return r.s.transact(func(st *state) error {
		return (&ledger{st: st, now: r.s.now}).RefundClassCredit(ctx, membershipID, credits)
	})
}

// Balance returns the stored membership regardless of scope. Test helper.
func (r *Memberships) Balance(membershipID string) (membership.Membership, bool) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.st.memberships[membershipID]
	return m, ok
}

// ledger is membership.CreditLedger over one state, committed or in a
// transaction.
type ledger struct {
	st  *state
	now func() time.Time
}

func (l *ledger) FindActiveMembership(ctx context.Context, memberID, gymID string, credits int) (*membership.Membership, error) {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	now := l.now()

	var candidates []membership.Membership
	for _, m := range l.st.memberships {
		if m.OrganisationID != scope.OrganisationID || m.MemberID != memberID || m.Status != membership.StatusActive {
			continue
		}
		if m.ValidFrom.After(now) || m.ValidUntil.Before(now) {
			continue
		}
		if m.CreditsRemaining != nil && *m.CreditsRemaining < max(credits, 1) {
			continue
		}
		if m.GymID != "" && m.GymID != gymID {
			continue
		}
		candidates = append(candidates, m)
	}
	if len(candidates) == 0 {
		return nil, membership.ErrNoActiveMembership
	}

	// gym-specific before organisation-wide, then soonest expiry
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if (a.GymID == "") != (b.GymID == "") {
			return a.GymID != ""
		}
		return a.ValidUntil.Before(b.ValidUntil)
	})
	return &candidates[0], nil
}

func (l *ledger) DeductClassCredit(ctx context.Context, membershipID string, credits int) error {
	if credits < 0 {
		return membership.ErrInvalidMembership
	}
	m, err := l.get(ctx, membershipID)
	if errors.Is(err, membership.ErrMembershipNotFound) {
		return membership.ErrInsufficientCredits
	}
	if err != nil {
		return err
	}
	if m.Status != membership.StatusActive || m.ValidUntil.Before(l.now()) {
		return membership.ErrInsufficientCredits
	}
	if m.CreditsRemaining != nil {
		if *m.CreditsRemaining < credits {
			return membership.ErrInsufficientCredits
		}
		remaining := *m.CreditsRemaining - credits
		m.CreditsRemaining = &remaining
	}
	m.CreditsUsed += credits
	m.UpdatedAt = l.now()
	l.st.memberships[m.ID] = m
	return nil
}

func (l *ledger) RefundClassCredit(ctx context.Context, membershipID string, credits int) error {
	m, err := l.get(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.CreditsRemaining != nil {
		remaining := *m.CreditsRemaining + credits
		m.CreditsRemaining = &remaining
	}
	m.CreditsUsed = max(m.CreditsUsed-credits, 0)
	m.UpdatedAt = l.now()
	l.st.memberships[m.ID] = m
	return nil
}

func (l *ledger) get(ctx context.Context, id string) (membership.Membership, error) {
	f, err := scoped.Current(ctx, membership.Table.Kind)
	if err != nil {
		return membership.Membership{}, err
	}
	m, ok := l.st.memberships[id]
	if !ok || !f.Matches(&m.Record) {
		return membership.Membership{}, membership.ErrMembershipNotFound
	}
	return m, nil
}
