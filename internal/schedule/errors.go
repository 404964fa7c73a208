package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("schedule not found")
	ErrClassNotFound      = errors.New("class not found")
	ErrInvalidTimeRange   = errors.New("end time must be after start time")
	ErrInvalidTransition  = errors.New("invalid schedule status transition")
	ErrSchedulingConflict = errors.New("scheduling conflict")
)

type Resource string

const (
	ResourceTrainer Resource = "trainer"
	ResourceArea    Resource = "area"
)

// ConflictError names the resource that is already taken and the instance
// holding it.
type ConflictError struct {
	Resource      Resource
	ResourceID    string
	ConflictingID string
	Start         time.Time
	End           time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s is already booked from %s to %s by schedule %s",
		e.Resource, e.ResourceID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.ConflictingID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrSchedulingConflict
}

type TransitionError struct {
	ID   string
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("schedule %s: cannot move from %s to %s", e.ID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
