package services

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler drives the recurring reconciliation run. The cron trigger and
// the manual HTTP trigger share the reconciler's entry point and are not
// mutually exclusive.
type Scheduler struct {
	cron       *cron.Cron
	reconciler *Reconciler
}

// NewScheduler registers the reconciliation run on the given cron spec
// (e.g. "0 * * * *" for hourly).
func NewScheduler(spec string, reconciler *Reconciler) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{cron: c, reconciler: reconciler}

	if _, err := c.AddFunc(spec, func() {
		log.Info().Msg("scheduled reconciliation run starting")
		s.reconciler.RunAll(context.Background())
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the schedule in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
