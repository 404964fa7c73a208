package gym

import (
	"context"
	"errors"

	"fitclass/internal/scoped"
	"fitclass/internal/tenant"
)

var (
	ErrGymNotFound = errors.New("gym not found")
)

type Service interface {
	ListGyms(ctx context.Context) ([]Gym, error)
	GetGym(ctx context.Context, id string) (*Gym, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
	}
}

// ListGyms lists the gyms of the caller's organisation.
func (s *service) ListGyms(ctx context.Context) ([]Gym, error) {
	scope, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByOrganisation(ctx, scope.OrganisationID)
}

func (s *service) GetGym(ctx context.Context, id string) (*Gym, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, err
	}

	gym, err := s.repo.GetGymByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Any gym of the caller's organisation may be read, not only the active one.
	if err := scoped.AssertInScope(ctx, scoped.OrgScoped, "gym", gym); err != nil {
		return nil, err
	}
	return gym, nil
}
