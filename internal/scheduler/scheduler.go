package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/caresignal/caresignal-backend/internal/apierr"
	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/repos"
	"github.com/caresignal/caresignal-backend/internal/services"
)

// Scheduler triggers a pipeline pass for every tenant with recent
// observations on a fixed interval. A tenant whose pass is already running
// (here or on another instance holding the lock) is skipped, not queued.
type Scheduler struct {
	log      *logger.Logger
	obsRepo  repos.ObservationRepo
	intelSvc services.IntelligenceService
	interval time.Duration
}

func NewScheduler(baseLog *logger.Logger, obsRepo repos.ObservationRepo, intelSvc services.IntelligenceService, intervalMinutes int) *Scheduler {
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}
	return &Scheduler{
		log:      baseLog.With("component", "PassScheduler"),
		obsRepo:  obsRepo,
		intelSvc: intelSvc,
		interval: time.Duration(intervalMinutes) * time.Minute,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

func (s *Scheduler) tick(ctx context.Context) {
	tenants, err := s.obsRepo.DistinctTenants(ctx, nil)
	if err != nil {
		s.log.Warn("Tenant listing failed", "error", err)
		return
	}
	for _, tenantID := range tenants {
		if ctx.Err() != nil {
			return
		}
		pass, err := s.intelSvc.RunPass(ctx, tenantID)
		if err != nil {
			if errors.Is(err, apierr.ErrPassInProgress) {
				s.log.Info("Pass already running, skipping tenant", "tenant_id", tenantID)
				continue
			}
			s.log.Error("Scheduled pass failed", "tenant_id", tenantID, "error", err)
			continue
		}
		s.log.Info("Scheduled pass finished",
			"tenant_id", tenantID,
			"pass_id", pass.ID,
			"status", pass.Status,
		)
	}
}
