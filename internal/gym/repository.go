package gym

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateGym(ctx context.Context, organisationID, name, location string) (*Gym, error) {
	query := `
		INSERT INTO gyms (id, organisation_id, name, location)
		VALUES ($1, $2, $3, $4)
		RETURNING id, organisation_id, name, location, created_at
	`

	var gym Gym
	err := r.db.GetContext(ctx, &gym, query, uuid.NewString(), organisationID, name, location)
	if err != nil {
		return nil, err
	}

	return &gym, nil
}

func (r *PostgresRepository) GetGymByID(ctx context.Context, id string) (*Gym, error) {
	query := `
		SELECT id, organisation_id, name, location, created_at
		FROM gyms
		WHERE id = $1
	`

	var gym Gym
	err := r.db.GetContext(ctx, &gym, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGymNotFound
	}
	if err != nil {
		return nil, err
	}

	return &gym, nil
}

// ListGyms returns every gym of every organisation. Only background jobs that
// derive a scope per gym should call it.
func (r *PostgresRepository) ListGyms(ctx context.Context) ([]Gym, error) {
	query := `
		SELECT id, organisation_id, name, location, created_at
		FROM gyms
		ORDER BY organisation_id, id
	`

	var gyms []Gym
	if err := r.db.SelectContext(ctx, &gyms, query); err != nil {
		return nil, err
	}

	return gyms, nil
}

func (r *PostgresRepository) ListByOrganisation(ctx context.Context, organisationID string) ([]Gym, error) {
	query := `
		SELECT id, organisation_id, name, location, created_at
		FROM gyms
		WHERE organisation_id = $1
		ORDER BY name
	`

	var gyms []Gym
	if err := r.db.SelectContext(ctx, &gyms, query, organisationID); err != nil {
		return nil, err
	}

	return gyms, nil
}

func (r *PostgresRepository) OrganisationOf(ctx context.Context, gymID string) (string, error) {
	var org string
	err := r.db.GetContext(ctx, &org, `SELECT organisation_id FROM gyms WHERE id = $1`, gymID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrGymNotFound
	}
	return org, err
}
