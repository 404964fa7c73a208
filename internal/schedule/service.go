package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitclass/internal/logger"
	"fitclass/internal/metrics"

	"github.com/google/uuid"
)

type Service interface {
	CreateClass(ctx context.Context, req CreateClassRequest) (*ClassDefinition, error)
	GetClass(ctx context.Context, id string) (*ClassDefinition, error)
	CreateInstance(ctx context.Context, req CreateInstanceRequest) (*Instance, error)
	GetInstance(ctx context.Context, id string) (*Instance, error)
	ListInstances(ctx context.Context, from, to time.Time) ([]Instance, error)
	Reschedule(ctx context.Context, id string, req RescheduleRequest) (*Instance, error)
	CancelInstance(ctx context.Context, id, reason string) (*Instance, error)
	StartInstance(ctx context.Context, id string) (*Instance, error)
	CompleteInstance(ctx context.Context, id string) (*Instance, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
		now:  time.Now,
	}
}

func (s *service) CreateClass(ctx context.Context, req CreateClassRequest) (*ClassDefinition, error) {
	now := s.now().UTC()
	class := &ClassDefinition{
		CategoryID:      req.CategoryID,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		Capacity:        DefaultCapacity,
		PriceAmount:     req.PriceAmount,
		CreditCost:      DefaultCreditCost,
	}
	if req.Capacity != nil {
		class.Capacity = *req.Capacity
	}
	if req.CreditCost != nil {
		class.CreditCost = *req.CreditCost
	}
	class.ID = uuid.NewString()
	class.CreatedAt = now
	class.UpdatedAt = now

	if err := s.repo.CreateClass(ctx, class); err != nil {
		return nil, err
	}
	return class, nil
}

func (s *service) GetClass(ctx context.Context, id string) (*ClassDefinition, error) {
	return s.repo.GetClass(ctx, id)
}

// CreateInstance schedules a class once its trainer and area are known to be
// free. The check and the insert share a transaction holding the resource
// locks.
func (s *service) CreateInstance(ctx context.Context, req CreateInstanceRequest) (*Instance, error) {
	now := s.now().UTC()
	inst := &Instance{
		ClassID:          req.ClassID,
		TrainerID:        req.TrainerID,
		AreaID:           req.AreaID,
		StartTime:        req.StartTime.UTC(),
		EndTime:          req.EndTime.UTC(),
		CapacityOverride: req.CapacityOverride,
		Status:           StatusScheduled,
	}
	inst.ID = uuid.NewString()
	inst.CreatedAt = now
	inst.UpdatedAt = now

	err := s.repo.InTx(ctx, func(tx Tx) error {
		class, err := tx.GetClass(ctx, req.ClassID)
		if err != nil {
			return err
		}
		if req.EndTime.IsZero() {
			inst.EndTime = inst.StartTime.Add(time.Duration(class.DurationMinutes) * time.Minute)
		}
		if err := s.checkLocked(ctx, tx, inst); err != nil {
			return err
		}
		return tx.InsertInstance(ctx, inst)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("schedule created", "schedule_id", inst.ID, "class_id", inst.ClassID, "start", inst.StartTime)
	return inst, nil
}

func (s *service) GetInstance(ctx context.Context, id string) (*Instance, error) {
	return s.repo.GetInstance(ctx, id)
}

func (s *service) ListInstances(ctx context.Context, from, to time.Time) ([]Instance, error) {
	if !to.After(from) {
		return nil, ErrInvalidTimeRange
	}
	return s.repo.ListInstances(ctx, from, to)
}

// Reschedule moves a SCHEDULED instance and optionally reassigns its trainer or
// area. Nil trainer or area keeps the current one.
func (s *service) Reschedule(ctx context.Context, id string, req RescheduleRequest) (*Instance, error) {
	var inst *Instance
	err := s.repo.InTx(ctx, func(tx Tx) error {
		var err error
		inst, err = tx.GetInstanceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inst.Status != StatusScheduled {
			return &TransitionError{ID: inst.ID, From: inst.Status, To: StatusScheduled}
		}

		inst.StartTime = req.StartTime.UTC()
		inst.EndTime = req.EndTime.UTC()
		if req.TrainerID != nil {
			inst.TrainerID = req.TrainerID
		}
		if req.AreaID != nil {
			inst.AreaID = req.AreaID
		}
		inst.UpdatedAt = s.now().UTC()

		if err := s.checkLocked(ctx, tx, inst); err != nil {
			return err
		}
		return tx.UpdateInstance(ctx, inst)
	})
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// CancelInstance cancels a SCHEDULED instance. Its bookings are left as they
// are.
func (s *service) CancelInstance(ctx context.Context, id, reason string) (*Instance, error) {
	return s.transition(ctx, id, StatusCancelled, func(inst *Instance) {
		inst.CancellationReason = &reason
	})
}

func (s *service) StartInstance(ctx context.Context, id string) (*Instance, error) {
	return s.transition(ctx, id, StatusInProgress, nil)
}

func (s *service) CompleteInstance(ctx context.Context, id string) (*Instance, error) {
	return s.transition(ctx, id, StatusCompleted, nil)
}

func (s *service) transition(ctx context.Context, id string, to Status, mutate func(*Instance)) (*Instance, error) {
	var inst *Instance
	err := s.repo.InTx(ctx, func(tx Tx) error {
		var err error
		inst, err = tx.GetInstanceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := inst.transition(to); err != nil {
			return err
		}
		if mutate != nil {
			mutate(inst)
		}
		inst.UpdatedAt = s.now().UTC()
		return tx.UpdateInstance(ctx, inst)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("schedule status changed", "schedule_id", id, "status", to)
	return inst, nil
}

func (s *service) checkLocked(ctx context.Context, tx Tx, inst *Instance) error {
	if !inst.EndTime.After(inst.StartTime) {
		return ErrInvalidTimeRange
	}
	if err := tx.LockResources(ctx, inst.TrainerID, inst.AreaID); err != nil {
		return fmt.Errorf("lock schedule resources: %w", err)
	}

	err := NewChecker(tx).Check(ctx, inst)
	var ce *ConflictError
	if errors.As(err, &ce) {
		metrics.RecordScheduleConflict(string(ce.Resource))
		logger.FromContext(ctx).Info("schedule conflict",
			"resource", ce.Resource,
			"resource_id", ce.ResourceID,
			"conflicting_schedule_id", ce.ConflictingID,
		)
	}
	return err
}
