package schedule

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fitclass/internal/scoped"

	"github.com/jmoiron/sqlx"
)

var (
	Classes = scoped.Table{Name: "class_definitions", Kind: scoped.GymScoped, Entity: "class"}
	// Instances is how schedules are read and written: within the scope's gym.
	Instances = scoped.Table{Name: "schedule_instances", Kind: scoped.GymScoped, Entity: "schedule"}
	// trainerInstances spans the organisation, since a trainer can teach at
	// any of its gyms.
	trainerInstances = scoped.Table{Name: "schedule_instances", Kind: scoped.OrgScoped, Entity: "schedule"}
)

const (
	classColumns = `id, organisation_id, gym_id, category_id, name, duration_minutes,
	capacity, price_amount, credit_cost, created_at, updated_at`
	instanceColumns = `id, organisation_id, gym_id, class_id, trainer_id, area_id, start_time, end_time,
	capacity_override, status, cancellation_reason, created_at, updated_at`
	overlapWhere = `status <> 'CANCELLED' AND id <> ? AND start_time < ? AND end_time > ?`
)

type PostgresRepository struct {
	db    *sqlx.DB
	store *scoped.Store
}

func NewRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db, store: scoped.NewStore(db)}
}

func (r *PostgresRepository) CreateClass(ctx context.Context, class *ClassDefinition) error {
	return insertClass(ctx, r.store, class)
}

func (r *PostgresRepository) GetClass(ctx context.Context, id string) (*ClassDefinition, error) {
	return getClass(ctx, r.store, id)
}

func (r *PostgresRepository) GetInstance(ctx context.Context, id string) (*Instance, error) {
	return getInstance(ctx, r.store, id, false)
}

func (r *PostgresRepository) ListInstances(ctx context.Context, from, to time.Time) ([]Instance, error) {
	instances := []Instance{}
	err := r.store.Select(ctx, &instances, Instances, scoped.Query{
		Columns: instanceColumns,
		Where:   "start_time >= ? AND start_time < ?",
		Args:    []any{from, to},
		OrderBy: "start_time, id",
	})
	return instances, err
}

func (r *PostgresRepository) FindTrainerConflict(ctx context.Context, trainerID string, start, end time.Time, excludeID string) (*Instance, error) {
	return findConflict(ctx, r.store, trainerInstances, "trainer_id", trainerID, start, end, excludeID)
}

func (r *PostgresRepository) FindAreaConflict(ctx context.Context, areaID string, start, end time.Time, excludeID string) (*Instance, error) {
	return findConflict(ctx, r.store, Instances, "area_id", areaID, start, end, excludeID)
}

func (r *PostgresRepository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return scoped.Transact(ctx, r.db, func(s *scoped.Store) error {
		return fn(&postgresTx{store: s})
	})
}

type postgresTx struct {
	store *scoped.Store
}

// NewTx exposes the transactional view over a Store another package has
// already bound to its own transaction.
func NewTx(s *scoped.Store) Tx {
	return &postgresTx{store: s}
}

func (t *postgresTx) LockResources(ctx context.Context, trainerID, areaID *string) error {
	if trainerID != nil && *trainerID != "" {
		if err := t.store.AdvisoryLock(ctx, "trainer:"+*trainerID); err != nil {
			return err
		}
	}
	if areaID != nil && *areaID != "" {
		if err := t.store.AdvisoryLock(ctx, "area:"+*areaID); err != nil {
			return err
		}
	}
	return nil
}

func (t *postgresTx) FindTrainerConflict(ctx context.Context, trainerID string, start, end time.Time, excludeID string) (*Instance, error) {
	return findConflict(ctx, t.store, trainerInstances, "trainer_id", trainerID, start, end, excludeID)
}

func (t *postgresTx) FindAreaConflict(ctx context.Context, areaID string, start, end time.Time, excludeID string) (*Instance, error) {
	return findConflict(ctx, t.store, Instances, "area_id", areaID, start, end, excludeID)
}

func (t *postgresTx) GetClass(ctx context.Context, id string) (*ClassDefinition, error) {
	return getClass(ctx, t.store, id)
}

func (t *postgresTx) GetInstanceForUpdate(ctx context.Context, id string) (*Instance, error) {
	return getInstance(ctx, t.store, id, true)
}

func (t *postgresTx) InsertInstance(ctx context.Context, inst *Instance) error {
	return t.store.Insert(ctx, Instances, inst,
		"id", "organisation_id", "gym_id", "class_id", "trainer_id", "area_id", "start_time", "end_time",
		"capacity_override", "status", "cancellation_reason", "created_at", "updated_at")
}

func (t *postgresTx) UpdateInstance(ctx context.Context, inst *Instance) error {
	n, err := t.store.Update(ctx, Instances,
		`trainer_id = ?, area_id = ?, start_time = ?, end_time = ?, status = ?, cancellation_reason = ?, updated_at = ?`,
		[]any{inst.TrainerID, inst.AreaID, inst.StartTime, inst.EndTime, inst.Status, inst.CancellationReason, inst.UpdatedAt},
		"id = ?", inst.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func insertClass(ctx context.Context, s *scoped.Store, class *ClassDefinition) error {
	return s.Insert(ctx, Classes, class,
		"id", "organisation_id", "gym_id", "category_id", "name", "duration_minutes",
		"capacity", "price_amount", "credit_cost", "created_at", "updated_at")
}

func getClass(ctx context.Context, s *scoped.Store, id string) (*ClassDefinition, error) {
	var class ClassDefinition
	err := s.Get(ctx, &class, Classes, scoped.Query{Columns: classColumns, Where: "id = ?", Args: []any{id}})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClassNotFound
	}
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func getInstance(ctx context.Context, s *scoped.Store, id string, forUpdate bool) (*Instance, error) {
	var inst Instance
	err := s.Get(ctx, &inst, Instances, scoped.Query{
		Columns:   instanceColumns,
		Where:     "id = ?",
		Args:      []any{id},
		ForUpdate: forUpdate,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func findConflict(ctx context.Context, s *scoped.Store, t scoped.Table, column, resourceID string, start, end time.Time, excludeID string) (*Instance, error) {
	var inst Instance
	err := s.Get(ctx, &inst, t, scoped.Query{
		Columns: instanceColumns,
		Where:   column + " = ? AND " + overlapWhere,
		Args:    []any{resourceID, excludeID, end, start},
		OrderBy: "start_time",
		Limit:   1,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}
