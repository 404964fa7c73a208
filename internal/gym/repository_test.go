package gym

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gymColumns = []string{"id", "organisation_id", "name", "location", "created_at"}

func setupGymMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	dbx := sqlx.NewDb(db, "postgres")
	t.Cleanup(func() { dbx.Close() })
	return NewRepository(dbx), mock
}

func TestCreateGym(t *testing.T) {
	repo, mock := setupGymMock(t)

	mock.ExpectQuery(`INSERT INTO gyms.*`).
		WithArgs(sqlmock.AnyArg(), "org-a", "Gym A", "City X").
		WillReturnRows(sqlmock.NewRows(gymColumns).AddRow("gym-1", "org-a", "Gym A", "City X", time.Now()))

	gym, err := repo.CreateGym(context.Background(), "org-a", "Gym A", "City X")
	require.NoError(t, err)
	assert.Equal(t, "gym-1", gym.ID)
	assert.Equal(t, "org-a", gym.OrganisationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetGymByID(t *testing.T) {
	repo, mock := setupGymMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, organisation_id, name, location, created_at FROM gyms WHERE id = $1`)).
		WithArgs("gym-1").
		WillReturnRows(sqlmock.NewRows(gymColumns).AddRow("gym-1", "org-a", "Gym A", "City X", time.Now()))

	gym, err := repo.GetGymByID(context.Background(), "gym-1")
	require.NoError(t, err)
	assert.Equal(t, "Gym A", gym.Name)

	mock.ExpectQuery(`FROM gyms WHERE id = \$1`).
		WithArgs("gym-404").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetGymByID(context.Background(), "gym-404")
	assert.ErrorIs(t, err, ErrGymNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListGyms(t *testing.T) {
	repo, mock := setupGymMock(t)

	mock.ExpectQuery(`SELECT id, organisation_id, name, location, created_at FROM gyms ORDER BY organisation_id, id`).
		WillReturnRows(sqlmock.NewRows(gymColumns).
			AddRow("gym-1", "org-a", "Gym A", "City X", time.Now()).
			AddRow("gym-2", "org-b", "Gym B", "City Y", time.Now()))

	gyms, err := repo.ListGyms(context.Background())
	require.NoError(t, err)
	assert.Len(t, gyms, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByOrganisation(t *testing.T) {
	repo, mock := setupGymMock(t)

	mock.ExpectQuery(`FROM gyms WHERE organisation_id = \$1`).
		WithArgs("org-a").
		WillReturnRows(sqlmock.NewRows(gymColumns).AddRow("gym-1", "org-a", "Gym A", "City X", time.Now()))

	gyms, err := repo.ListByOrganisation(context.Background(), "org-a")
	require.NoError(t, err)
	assert.Len(t, gyms, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrganisationOf(t *testing.T) {
	repo, mock := setupGymMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT organisation_id FROM gyms WHERE id = $1`)).
		WithArgs("gym-1").
		WillReturnRows(sqlmock.NewRows([]string{"organisation_id"}).AddRow("org-a"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT organisation_id FROM gyms WHERE id = $1`)).
		WithArgs("gym-404").
		WillReturnError(sql.ErrNoRows)

	org, err := repo.OrganisationOf(context.Background(), "gym-1")
	require.NoError(t, err)
	assert.Equal(t, "org-a", org)

	_, err = repo.OrganisationOf(context.Background(), "gym-404")
	assert.ErrorIs(t, err, ErrGymNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
