package booking

import (
	"context"
	"errors"
	"time"

	"fitclass/internal/gym"
	"fitclass/internal/logger"
	"fitclass/internal/tenant"

	"github.com/go-co-op/gocron/v2"
)

type GymLister interface {
	ListGyms(ctx context.Context) ([]gym.Gym, error)
}

// NoShowSweeper marks overdue CONFIRMED bookings NO_SHOW. It runs outside any
// request and opens a fresh scope per gym.
type NoShowSweeper struct {
	engine *Engine
	repo   Repository
	gyms   GymLister
	grace  time.Duration
}

func NewNoShowSweeper(engine *Engine, repo Repository, gyms GymLister, grace time.Duration) *NoShowSweeper {
	return &NoShowSweeper{engine: engine, repo: repo, gyms: gyms, grace: grace}
}

// Register schedules the sweep every interval. A run still going when the
// next is due pushes it back instead of overlapping.
func (s *NoShowSweeper) Register(scheduler gocron.Scheduler, interval time.Duration) (gocron.Job, error) {
	return scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			n, err := s.Sweep(context.Background())
			if err != nil {
				logger.Error("no-show sweep failed", "error", err, "marked", n)
				return
			}
			if n > 0 {
				logger.Info("no-show sweep finished", "marked", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("no-show-sweeper"),
	)
}

// Sweep runs once over every gym and returns how many bookings it marked. A
// failing gym is logged and skipped; the first such error is returned.
func (s *NoShowSweeper) Sweep(ctx context.Context) (int, error) {
	ctx = tenant.Detach(ctx)

	gyms, err := s.gyms.ListGyms(ctx)
	if err != nil {
		return 0, err
	}

	var (
		total    int
		firstErr error
	)
	cutoff := s.engine.now().UTC().Add(-s.grace)
	for _, g := range gyms {
		scope := tenant.Scope{OrganisationID: g.OrganisationID, GymID: g.ID}
		err := tenant.Run(ctx, scope, func(ctx context.Context) error {
			n, err := s.sweepGym(ctx, cutoff)
			total += n
			return err
		})
		if err != nil {
			logger.Error("no-show sweep failed for gym", "gym_id", g.ID, "organisation_id", g.OrganisationID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return total, firstErr
}

func (s *NoShowSweeper) sweepGym(ctx context.Context, cutoff time.Time) (int, error) {
	overdue, err := s.repo.ListOverdue(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, b := range overdue {
		_, err := s.engine.MarkNoShow(ctx, b.ID)
		switch {
		case err == nil:
			marked++
		case errors.Is(err, ErrInvalidState):
			// checked in or cancelled since the listing
		default:
			return marked, err
		}
	}
	return marked, nil
}
