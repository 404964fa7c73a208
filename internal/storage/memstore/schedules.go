package memstore

import (
	"context"
	"sort"
	"time"

	"fitclass/internal/schedule"
	"fitclass/internal/scoped"
)

// Schedules implements schedule.Repository.
type Schedules struct {
	s *Store
}

func (r *Schedules) CreateClass(ctx context.Context, class *schedule.ClassDefinition) error {
	return r.s.transact(func(st *state) error {
		if err := scoped.Stamp(ctx, schedule.Classes.Kind, schedule.Classes.Entity, class); err != nil {
			return err
		}
		st.classes[class.ID] = *class
		return nil
	})
}

func (r *Schedules) GetClass(ctx context.Context, id string) (c *schedule.ClassDefinition, err error) {
	err = r.s.read(func(st *state) error {
		c, err = st.class(ctx, id)
		return err
	})
	return c, err
}

func (r *Schedules) GetInstance(ctx context.Context, id string) (inst *schedule.Instance, err error) {
	err = r.s.read(func(st *state) error {
		inst, err = st.instance(ctx, id)
		return err
	})
	return inst, err
}

func (r *Schedules) ListInstances(ctx context.Context, from, to time.Time) ([]schedule.Instance, error) {
	out := []schedule.Instance{}
	err := r.s.read(func(st *state) error {
		f, err := scoped.Current(ctx, schedule.Instances.Kind)
		if err != nil {
			return err
		}
		for _, inst := range st.instances {
			if f.Matches(&inst.Record) && !inst.StartTime.Before(from) && inst.StartTime.Before(to) {
				out = append(out, inst)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, err
}

func (r *Schedules) FindTrainerConflict(ctx context.Context, trainerID string, start, end time.Time, excludeID string) (inst *schedule.Instance, err error) {
	err = r.s.read(func(st *state) error {
		inst, err = st.trainerConflict(ctx, trainerID, start, end, excludeID)
		return err
	})
	return inst, err
}

func (r *Schedules) FindAreaConflict(ctx context.Context, areaID string, start, end time.Time, excludeID string) (inst *schedule.Instance, err error) {
	err = r.s.read(func(st *state) error {
		inst, err = st.areaConflict(ctx, areaID, start, end, excludeID)
		return err
	})
	return inst, err
}

func (r *Schedules) InTx(ctx context.Context, fn func(tx schedule.Tx) error) error {
	return r.s.transact(func(st *state) error {
		return fn(&scheduleTx{st: st})
	})
}

type scheduleTx struct {
	st *state
}

// LockResources is a no-op: the store mutex already serializes transactions.
func (t *scheduleTx) LockResources(context.Context, *string, *string) error {
	return nil
}

func (t *scheduleTx) FindTrainerConflict(ctx context.Context, trainerID string, start, end time.Time, excludeID string) (*schedule.Instance, error) {
	return t.st.trainerConflict(ctx, trainerID, start, end, excludeID)
}

func (t *scheduleTx) FindAreaConflict(ctx context.Context, areaID string, start, end time.Time, excludeID string) (*schedule.Instance, error) {
	return t.st.areaConflict(ctx, areaID, start, end, excludeID)
}

func (t *scheduleTx) GetClass(ctx context.Context, id string) (*schedule.ClassDefinition, error) {
	return t.st.class(ctx, id)
}

func (t *scheduleTx) GetInstanceForUpdate(ctx context.Context, id string) (*schedule.Instance, error) {
	return t.st.instance(ctx, id)
}

func (t *scheduleTx) InsertInstance(ctx context.Context, inst *schedule.Instance) error {
	if err := scoped.Stamp(ctx, schedule.Instances.Kind, schedule.Instances.Entity, inst); err != nil {
		return err
	}
	t.st.instances[inst.ID] = *inst
	return nil
}

func (t *scheduleTx) UpdateInstance(ctx context.Context, inst *schedule.Instance) error {
	existing, err := t.st.instance(ctx, inst.ID)
	if err != nil {
		return err
	}
	updated := *inst
	updated.Record = existing.Record
	updated.UpdatedAt = inst.UpdatedAt
	t.st.instances[inst.ID] = updated
	return nil
}

func (st *state) class(ctx context.Context, id string) (*schedule.ClassDefinition, error) {
	f, err := scoped.Current(ctx, schedule.Classes.Kind)
	if err != nil {
		return nil, err
	}
	c, ok := st.classes[id]
	if !ok || !f.Matches(&c.Record) {
		return nil, schedule.ErrClassNotFound
	}
	return &c, nil
}

func (st *state) instance(ctx context.Context, id string) (*schedule.Instance, error) {
	f, err := scoped.Current(ctx, schedule.Instances.Kind)
	if err != nil {
		return nil, err
	}
	inst, ok := st.instances[id]
	if !ok || !f.Matches(&inst.Record) {
		return nil, schedule.ErrNotFound
	}
	return &inst, nil
}

// trainerConflict searches the whole organisation; areaConflict only the
// scope's gym.
func (st *state) trainerConflict(ctx context.Context, trainerID string, start, end time.Time, excludeID string) (*schedule.Instance, error) {
	f, err := scoped.Current(ctx, scoped.OrgScoped)
	if err != nil {
		return nil, err
	}
	return st.firstOverlap(f, func(i *schedule.Instance) bool {
		return i.TrainerID != nil && *i.TrainerID == trainerID
	}, start, end, excludeID), nil
}

func (st *state) areaConflict(ctx context.Context, areaID string, start, end time.Time, excludeID string) (*schedule.Instance, error) {
	f, err := scoped.Current(ctx, schedule.Instances.Kind)
	if err != nil {
		return nil, err
	}
	return st.firstOverlap(f, func(i *schedule.Instance) bool {
		return i.AreaID != nil && *i.AreaID == areaID
	}, start, end, excludeID), nil
}

func (st *state) firstOverlap(f scoped.Filter, holds func(*schedule.Instance) bool, start, end time.Time, excludeID string) *schedule.Instance {
	var found *schedule.Instance
	for _, inst := range st.instances {
		if inst.ID == excludeID || inst.Status == schedule.StatusCancelled || !f.Matches(&inst.Record) || !holds(&inst) {
			continue
		}
		if !schedule.Overlaps(inst.StartTime, inst.EndTime, start, end) {
			continue
		}
		if found == nil || inst.StartTime.Before(found.StartTime) {
			c := inst
			found = &c
		}
	}
	return found
}
