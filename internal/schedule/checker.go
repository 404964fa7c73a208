package schedule

import (
	"context"
	"time"
)

// ConflictFinder returns the first non-cancelled instance in scope that holds
// the resource during [start, end), ignoring excludeID. It returns nil, nil
// when the resource is free.
type ConflictFinder interface {
	FindTrainerConflict(ctx context.Context, trainerID string, start, end time.Time, excludeID string) (*Instance, error)
	FindAreaConflict(ctx context.Context, areaID string, start, end time.Time, excludeID string) (*Instance, error)
}

// Overlaps is the half-open interval test: touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

type Checker struct {
	finder ConflictFinder
}

func NewChecker(finder ConflictFinder) *Checker {
	return &Checker{finder: finder}
}

func (c *Checker) HasTrainerConflict(ctx context.Context, trainerID string, start, end time.Time) (bool, error) {
	if !end.After(start) {
		return false, ErrInvalidTimeRange
	}
	existing, err := c.finder.FindTrainerConflict(ctx, trainerID, start, end, "")
	return existing != nil, err
}

func (c *Checker) HasAreaConflict(ctx context.Context, areaID string, start, end time.Time) (bool, error) {
	if !end.After(start) {
		return false, ErrInvalidTimeRange
	}
	existing, err := c.finder.FindAreaConflict(ctx, areaID, start, end, "")
	return existing != nil, err
}

// Check verifies the candidate's trainer and area. The candidate's own ID is
// excluded so a reschedule does not conflict with itself.
func (c *Checker) Check(ctx context.Context, candidate *Instance) error {
	if !candidate.EndTime.After(candidate.StartTime) {
		return ErrInvalidTimeRange
	}

	if candidate.TrainerID != nil && *candidate.TrainerID != "" {
		existing, err := c.finder.FindTrainerConflict(ctx, *candidate.TrainerID, candidate.StartTime, candidate.EndTime, candidate.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return conflict(ResourceTrainer, *candidate.TrainerID, existing)
		}
	}

	if candidate.AreaID != nil && *candidate.AreaID != "" {
		existing, err := c.finder.FindAreaConflict(ctx, *candidate.AreaID, candidate.StartTime, candidate.EndTime, candidate.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return conflict(ResourceArea, *candidate.AreaID, existing)
		}
	}
	return nil
}

func conflict(r Resource, id string, existing *Instance) *ConflictError {
	return &ConflictError{
		Resource:      r,
		ResourceID:    id,
		ConflictingID: existing.ID,
		Start:         existing.StartTime,
		End:           existing.EndTime,
	}
}
