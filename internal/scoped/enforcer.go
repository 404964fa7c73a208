// Package scoped applies the tenant scope to storage. Records embed Record;
// adapters call Stamp before inserts and Current before any read, update or
// delete, and AND the resulting Filter into the query themselves.
package scoped

import (
	"context"
	"fmt"
	"time"

	"fitclass/internal/metrics"
	"fitclass/internal/tenant"
)

// Kind says how far a record is scoped.
type Kind int

const (
	// OrgScoped records are filtered by organisation only.
	OrgScoped Kind = iota
	// GymScoped records are filtered by organisation and, when the scope
	// names one, by gym.
	GymScoped
)

// Record holds the fields every tenant-scoped row shares.
type Record struct {
	ID             string    `db:"id" json:"id"`
	OrganisationID string    `db:"organisation_id" json:"organisation_id"`
	GymID          string    `db:"gym_id" json:"gym_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

func (r *Record) ScopeRecord() *Record { return r }

// Entity is implemented by every struct embedding Record.
type Entity interface {
	ScopeRecord() *Record
}

// Stamp fills organisation and gym from the scope in ctx. Values supplied by
// the caller must agree with the scope.
func Stamp(ctx context.Context, kind Kind, name string, e Entity) error {
	s, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("stamp %s: %w", name, tenant.ErrMissingTenantContext)
	}
	r := e.ScopeRecord()

	switch {
	case r.OrganisationID == "":
		r.OrganisationID = s.OrganisationID
	case r.OrganisationID != s.OrganisationID:
		return denied(name, r, s)
	}

	if kind != GymScoped {
		return nil
	}
	switch {
	case r.GymID == "" && !s.HasGym():
		return fmt.Errorf("stamp %s: gym required: %w", name, tenant.ErrMissingTenantContext)
	case r.GymID == "":
		r.GymID = s.GymID
	case s.HasGym() && r.GymID != s.GymID:
		return denied(name, r, s)
	}
	return nil
}

// Filter is the tenant predicate every scoped query carries.
type Filter struct {
	OrganisationID string
	// GymID is empty when the kind is organisation-scoped or the scope has
	// no gym.
	GymID string
}

// Current derives the Filter for kind from the scope in ctx.
func Current(ctx context.Context, kind Kind) (Filter, error) {
	s, err := tenant.FromContext(ctx)
	if err != nil {
		return Filter{}, err
	}
	f := Filter{OrganisationID: s.OrganisationID}
	if kind == GymScoped {
		f.GymID = s.GymID
	}
	return f, nil
}

// SQL renders the predicate with '?' placeholders. Prefix qualifies the
// columns, e.g. "b." for an aliased table.
func (f Filter) SQL(prefix string) (string, []any) {
	if f.GymID == "" {
		return prefix + "organisation_id = ?", []any{f.OrganisationID}
	}
	return prefix + "organisation_id = ? AND " + prefix + "gym_id = ?", []any{f.OrganisationID, f.GymID}
}

func (f Filter) Matches(r *Record) bool {
	if r.OrganisationID != f.OrganisationID {
		return false
	}
	return f.GymID == "" || r.GymID == f.GymID
}

// AssertBelongsTo fails when e is outside the expected organisation/gym. Use
// it on records loaded by an ID that came from outside a scoped query.
func AssertBelongsTo(name string, e Entity, organisationID, gymID string) error {
	r := e.ScopeRecord()
	if r.OrganisationID != organisationID || (gymID != "" && r.GymID != gymID) {
		return denied(name, r, tenant.Scope{OrganisationID: organisationID, GymID: gymID})
	}
	return nil
}

// AssertInScope is AssertBelongsTo against the scope in ctx.
func AssertInScope(ctx context.Context, kind Kind, name string, e Entity) error {
	f, err := Current(ctx, kind)
	if err != nil {
		return err
	}
	return AssertBelongsTo(name, e, f.OrganisationID, f.GymID)
}

func denied(name string, r *Record, expected tenant.Scope) error {
	metrics.RecordCrossTenantDenial(name)
	return &tenant.CrossTenantAccessError{
		Kind:     name,
		ID:       r.ID,
		Expected: expected,
		Actual:   tenant.Scope{OrganisationID: r.OrganisationID, GymID: r.GymID},
	}
}
