package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/TheOneAtFault/auction-monitor/internal/observability"
)

// Scheduler wraps robfig/cron and drives the recurring auction check plus
// the daily maintenance hook.
type Scheduler struct {
	cron         *cron.Cron
	orchestrator *Orchestrator
	logger       *observability.Logger
	checkSpec    string
	cleanupSpec  string
}

func NewScheduler(orchestrator *Orchestrator, checkIntervalMin, cleanupIntervalHrs int, logger *observability.Logger) *Scheduler {
	return &Scheduler{
		cron:         cron.New(),
		orchestrator: orchestrator,
		logger:       logger,
		checkSpec:    fmt.Sprintf("@every %dm", checkIntervalMin),
		cleanupSpec:  fmt.Sprintf("@every %dh", cleanupIntervalHrs),
	}
}

// Start registers the periodic jobs and starts the scheduler. One check
// fires immediately so a fresh deployment doesn't wait a full interval.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.checkSpec, func() {
		s.orchestrator.CheckAuctions(ctx)
	}); err != nil {
		return fmt.Errorf("cron.AddFunc check: %w", err)
	}

	if _, err := s.cron.AddFunc(s.cleanupSpec, func() {
		s.orchestrator.Cleanup(ctx)
	}); err != nil {
		return fmt.Errorf("cron.AddFunc cleanup: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", "check_spec", s.checkSpec, "cleanup_spec", s.cleanupSpec)

	// Populate on startup without blocking the caller.
	s.orchestrator.TriggerCheck(ctx)

	return nil
}

// Stop halts the timer. A pass already in flight finishes on its own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("Scheduler stopped")
}
