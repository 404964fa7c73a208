package gym

import (
	"context"
	"testing"

	"fitclass/internal/metrics"
	"fitclass/internal/tenant"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateGym(ctx context.Context, organisationID, name, location string) (*Gym, error) {
	args := m.Called(ctx, organisationID, name, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Gym), args.Error(1)
}

func (m *MockRepository) GetGymByID(ctx context.Context, id string) (*Gym, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Gym), args.Error(1)
}

func (m *MockRepository) ListGyms(ctx context.Context) ([]Gym, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Gym), args.Error(1)
}

func (m *MockRepository) ListByOrganisation(ctx context.Context, organisationID string) ([]Gym, error) {
	args := m.Called(ctx, organisationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Gym), args.Error(1)
}

func (m *MockRepository) OrganisationOf(ctx context.Context, gymID string) (string, error) {
	args := m.Called(ctx, gymID)
	return args.String(0), args.Error(1)
}

func orgCtx(org string) context.Context {
	return tenant.WithScope(context.Background(), tenant.Scope{OrganisationID: org})
}

func TestService_ListGymsUsesScope(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo)
	ctx := orgCtx("org-a")

	repo.On("ListByOrganisation", ctx, "org-a").Return([]Gym{{ID: "gym-1", OrganisationID: "org-a"}}, nil)

	gyms, err := svc.ListGyms(ctx)
	require.NoError(t, err)
	assert.Len(t, gyms, 1)
	repo.AssertExpectations(t)
}

func TestService_ListGymsWithoutScope(t *testing.T) {
	svc := NewService(new(MockRepository))

	_, err := svc.ListGyms(context.Background())
	assert.ErrorIs(t, err, tenant.ErrNoScope)
}

func TestService_GetGymOtherOrganisation(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo)
	ctx := orgCtx("org-a")

	repo.On("GetGymByID", ctx, "gym-9").Return(&Gym{ID: "gym-9", OrganisationID: "org-b"}, nil)

	denials := testutil.ToFloat64(metrics.CrossTenantDenialsTotal.WithLabelValues("gym"))

	_, err := svc.GetGym(ctx, "gym-9")
	assert.ErrorIs(t, err, tenant.ErrCrossTenantAccess)
	var cte *tenant.CrossTenantAccessError
	require.ErrorAs(t, err, &cte)
	assert.Equal(t, "gym-9", cte.ID)
	assert.Equal(t, tenant.Scope{OrganisationID: "org-a"}, cte.Expected)
	assert.Equal(t, tenant.Scope{OrganisationID: "org-b", GymID: "gym-9"}, cte.Actual)
	assert.Equal(t, denials+1, testutil.ToFloat64(metrics.CrossTenantDenialsTotal.WithLabelValues("gym")))
}

func TestService_GetSisterGym(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo)
	ctx := tenant.WithScope(context.Background(), tenant.Scope{OrganisationID: "org-a", GymID: "gym-1"})

	repo.On("GetGymByID", ctx, "gym-2").Return(&Gym{ID: "gym-2", OrganisationID: "org-a", Name: "Annex"}, nil)

	g, err := svc.GetGym(ctx, "gym-2")
	require.NoError(t, err)
	assert.Equal(t, "Annex", g.Name)
}

func TestService_GetGym(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo)
	ctx := orgCtx("org-a")

	repo.On("GetGymByID", ctx, "gym-1").Return(&Gym{ID: "gym-1", OrganisationID: "org-a", Name: "Central"}, nil)

	gym, err := svc.GetGym(ctx, "gym-1")
	require.NoError(t, err)
	assert.Equal(t, "Central", gym.Name)
}
