package gym

import (
	"time"

	"fitclass/internal/scoped"
)

// Gym is a row of the tenant registry. It is not itself tenant-scoped: the
// directory is what scopes are validated against.
type Gym struct {
	ID             string    `db:"id" json:"id"`
	OrganisationID string    `db:"organisation_id" json:"organisation_id"`
	Name           string    `db:"name" json:"name"`
	Location       string    `db:"location" json:"location"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ScopeRecord presents the gym as a record owned by itself, so the tenant
// assertions in package scoped apply to directory rows.
func (g *Gym) ScopeRecord() *scoped.Record {
	return &scoped.Record{ID: g.ID, OrganisationID: g.OrganisationID, GymID: g.ID, CreatedAt: g.CreatedAt}
}
