package withdrawal

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/AsukuOnukaba/tingle-sub000/internal/logger"
)

// Sweeper runs the reconciliation sweep on a cron schedule.
type Sweeper struct {
	service *Service
	cron    *cron.Cron
}

func NewSweeper(service *Service) *Sweeper {
	return &Sweeper{
		service: service,
		cron:    cron.New(),
	}
}

// Start registers the sweep on the given cron spec and launches the
// scheduler. Returns an error only for an invalid spec.
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx := context.Background()
		if err := s.service.Sweep(ctx); err != nil {
			logger.Error("withdrawal sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Info("withdrawal sweeper started", "schedule", schedule)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
