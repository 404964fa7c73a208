// Package tenant carries the organisation/gym scope of one operation through
// context.Context. Every scoped storage call reads the scope from the context it
// is given; there is no process-wide current tenant.
package tenant

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoScope is returned when scoped code runs outside any scope.
	ErrNoScope = errors.New("tenant: no scope in context")
	// ErrMissingTenantContext is returned when the scope lacks a part the
	// operation needs, e.g. a gym for a gym-scoped record.
	ErrMissingTenantContext = errors.New("tenant: missing tenant context")
	// ErrInvalidScope marks an organisation/gym combination that cannot exist.
	ErrInvalidScope = errors.New("tenant: gym does not belong to organisation")
	// ErrCrossTenantAccess is matched by every CrossTenantAccessError.
	ErrCrossTenantAccess = errors.New("tenant: cross-tenant access")
)

// Scope is the (organisation, gym) pair an operation runs under. GymID is
// empty when the operation is organisation-wide.
type Scope struct {
	OrganisationID string
	GymID          string
}

func (s Scope) HasGym() bool {
	return s.GymID != ""
}

func (s Scope) String() string {
	if s.GymID == "" {
		return "org=" + s.OrganisationID
	}
	return "org=" + s.OrganisationID + " gym=" + s.GymID
}

type scopeKey struct{}

// WithScope returns a child context carrying s. It panics on an empty
// organisation: opening a scope without one is a programming error.
func WithScope(ctx context.Context, s Scope) context.Context {
	if s.OrganisationID == "" {
		panic("tenant: WithScope called without an organisation")
	}
	scope := s
	return context.WithValue(ctx, scopeKey{}, &scope)
}

// Run executes fn under s. The scope lives only in the context handed to fn,
// so it is gone once fn returns, on every exit path.
func Run(ctx context.Context, s Scope, fn func(ctx context.Context) error) error {
	if s.OrganisationID == "" {
		return ErrMissingTenantContext
	}
	return fn(WithScope(ctx, s))
}

// FromContext returns the active scope or ErrNoScope.
func FromContext(ctx context.Context) (Scope, error) {
	if ctx == nil {
		return Scope{}, ErrNoScope
	}
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	if s == nil {
		return Scope{}, ErrNoScope
	}
	return *s, nil
}

// Detach masks any inherited scope. Background work started from a request
// must re-derive its own scope instead of borrowing the caller's.
func Detach(ctx context.Context) context.Context {
	return context.WithValue(context.WithoutCancel(ctx), scopeKey{}, (*Scope)(nil))
}

// GymDirectory resolves which organisation owns a gym.
type GymDirectory interface {
	OrganisationOf(ctx context.Context, gymID string) (string, error)
}

// Open validates the organisation/gym pair against dir and returns a scoped
// context.
func Open(ctx context.Context, dir GymDirectory, organisationID, gymID string) (context.Context, error) {
	if organisationID == "" {
		return nil, ErrMissingTenantContext
	}
	if gymID != "" {
		owner, err := dir.OrganisationOf(ctx, gymID)
		if err != nil {
			return nil, fmt.Errorf("resolve gym %s: %w", gymID, err)
		}
		if owner != organisationID {
			return nil, fmt.Errorf("%w: gym %s, organisation %s", ErrInvalidScope, gymID, organisationID)
		}
	}
	return WithScope(ctx, Scope{OrganisationID: organisationID, GymID: gymID}), nil
}

// CrossTenantAccessError reports a record that resolved outside the caller's
// scope. Callers must surface it as not found.
type CrossTenantAccessError struct {
	Kind     string
	ID       string
	Expected Scope
	Actual   Scope
}

func (e *CrossTenantAccessError) Error() string {
	return fmt.Sprintf("tenant: %s %s belongs to %s, caller scope is %s", e.Kind, e.ID, e.Actual, e.Expected)
}

func (e *CrossTenantAccessError) Is(target error) bool {
	return target == ErrCrossTenantAccess
}
