package subscription

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/AsukuOnukaba/tingle-sub000/internal/logger"
)

// Sweeper periodically flips lapsed subscriptions inactive so rows
// nobody reads still converge.
type Sweeper struct {
	repo *Repository
	cron *cron.Cron
}

func NewSweeper(repo *Repository) *Sweeper {
	return &Sweeper{
		repo: repo,
		cron: cron.New(),
	}
}

// Start registers the expiry pass on the given cron spec and launches
// the scheduler. Returns an error only for an invalid spec.
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		n, err := s.repo.ExpireLapsed(context.Background())
		if err != nil {
			logger.Error("subscription expiry sweep failed", "error", err)
			return
		}
		if n > 0 {
			logger.Info("expired lapsed subscriptions", "count", n)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Info("subscription sweeper started", "schedule", schedule)
	return nil
}

// Stop halts the scheduler and waits for a running pass to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
