package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitclass/internal/gym"
	"fitclass/internal/tenant"

	"github.com/google/uuid"
)

var (
	ErrNoActiveMembership  = errors.New("no active membership")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrMembershipNotFound  = errors.New("membership not found")
	ErrInvalidMembership   = errors.New("invalid membership")
)

type Service interface {
	Grant(ctx context.Context, req GrantMembershipRequest) (*Membership, error)
	ListByMember(ctx context.Context, memberID string) ([]Membership, error)
}

type service struct {
	repo Repository
	gyms tenant.GymDirectory
	now  func() time.Time
}

func NewService(repo Repository, gyms tenant.GymDirectory) Service {
	return &service{
		repo: repo,
		gyms: gyms,
		now:  time.Now,
	}
}

// Grant issues a membership in the caller's organisation. Payment for it is
// settled elsewhere.
func (s *service) Grant(ctx context.Context, req GrantMembershipRequest) (*Membership, error) {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if req.ValidDays <= 0 || (req.Credits != nil && *req.Credits < 0) {
		return nil, ErrInvalidMembership
	}

	// A gym of another organisation is reported exactly like a missing one.
	if req.GymID != "" {
		owner, err := s.gyms.OrganisationOf(ctx, req.GymID)
		if errors.Is(err, gym.ErrGymNotFound) || (err == nil && owner != scope.OrganisationID) {
			return nil, fmt.Errorf("grant membership at gym %s: %w", req.GymID, gym.ErrGymNotFound)
		}
		if err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	m := &Membership{
		MemberID:         req.MemberID,
		Status:           StatusActive,
		CreditsRemaining: req.Credits,
		ValidFrom:        now,
		ValidUntil:       now.AddDate(0, 0, req.ValidDays),
	}
	m.ID = uuid.NewString()
	m.GymID = req.GymID
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *service) ListByMember(ctx context.Context, memberID string) ([]Membership, error) {
	return s.repo.ListByMember(ctx, memberID)
}
