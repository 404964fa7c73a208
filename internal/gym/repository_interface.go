package gym

import "context"

type Repository interface {
	CreateGym(ctx context.Context, organisationID, name, location string) (*Gym, error)
	GetGymByID(ctx context.Context, id string) (*Gym, error)
	ListGyms(ctx context.Context) ([]Gym, error)
	ListByOrganisation(ctx context.Context, organisationID string) ([]Gym, error)
	OrganisationOf(ctx context.Context, gymID string) (string, error)
}
