package schedule

import (
	"time"

	"fitclass/internal/scoped"
)

type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

const (
	DefaultCapacity   = 20
	DefaultCreditCost = 1
)

var transitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

type ClassDefinition struct {
	scoped.Record
	CategoryID      string `db:"category_id" json:"category_id,omitempty"`
	Name            string `db:"name" json:"name"`
	DurationMinutes int    `db:"duration_minutes" json:"duration_minutes"`
	Capacity        int    `db:"capacity" json:"capacity"`
	PriceAmount     int64  `db:"price_amount" json:"price_amount"`
	CreditCost      int    `db:"credit_cost" json:"credit_cost"`
}

// Instance is one dated occurrence of a class.
type Instance struct {
	scoped.Record
	ClassID            string    `db:"class_id" json:"class_id"`
	TrainerID          *string   `db:"trainer_id" json:"trainer_id,omitempty"`
	AreaID             *string   `db:"area_id" json:"area_id,omitempty"`
	StartTime          time.Time `db:"start_time" json:"start_time"`
	EndTime            time.Time `db:"end_time" json:"end_time"`
	CapacityOverride   *int      `db:"capacity_override" json:"capacity_override,omitempty"`
	Status             Status    `db:"status" json:"status"`
	CancellationReason *string   `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
}

// EffectiveCapacity is the override when set, else the class capacity.
func (i *Instance) EffectiveCapacity(class *ClassDefinition) int {
	if i.CapacityOverride != nil {
		return *i.CapacityOverride
	}
	return class.Capacity
}

func (i *Instance) transition(to Status) error {
	for _, s := range transitions[i.Status] {
		if s == to {
			i.Status = to
			return nil
		}
	}
	return &TransitionError{ID: i.ID, From: i.Status, To: to}
}

type CreateClassRequest struct {
	Name            string `json:"name" binding:"required,max=200"`
	CategoryID      string `json:"category_id,omitempty"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=1440"`
	Capacity        *int   `json:"capacity,omitempty" binding:"omitempty,min=1"`
	PriceAmount     int64  `json:"price_amount" binding:"min=0"`
	CreditCost      *int   `json:"credit_cost,omitempty" binding:"omitempty,min=0"`
}

// CreateInstanceRequest schedules a class. EndTime defaults to StartTime plus
// the class duration.
type CreateInstanceRequest struct {
	ClassID          string    `json:"class_id" binding:"required"`
	TrainerID        *string   `json:"trainer_id,omitempty"`
	AreaID           *string   `json:"area_id,omitempty"`
	StartTime        time.Time `json:"start_time" binding:"required"`
	EndTime          time.Time `json:"end_time,omitempty"`
	CapacityOverride *int      `json:"capacity_override,omitempty" binding:"omitempty,min=1"`
}

type RescheduleRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	TrainerID *string   `json:"trainer_id,omitempty"`
	AreaID    *string   `json:"area_id,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}
