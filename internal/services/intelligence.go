package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/caresignal/caresignal-backend/internal/apierr"
	"github.com/caresignal/caresignal-backend/internal/clients/redis"
	"github.com/caresignal/caresignal-backend/internal/config"
	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/repos"
	"github.com/caresignal/caresignal-backend/internal/types"
)

// IntelligenceService runs one batch pass for a tenant: baselines, anomaly
// detection and risk scoring fan out per subject, then prioritization and
// escalation sync run once over the tenant. A pass snapshots its clock up
// front, so re-running against unchanged data writes nothing new.
type IntelligenceService interface {
	RunPass(ctx context.Context, tenantID uuid.UUID) (*types.PipelinePass, error)
	RecentPasses(ctx context.Context, tenantID uuid.UUID, limit int) ([]types.PipelinePass, error)
}

type intelligenceService struct {
	log            *logger.Logger
	db             *gorm.DB
	obsRepo        repos.ObservationRepo
	passRepo       repos.PipelinePassRepo
	resolveCfg     TenantConfigResolver
	baselineSvc    BaselineService
	anomalySvc     AnomalyService
	riskSvc        RiskService
	prioritizerSvc PrioritizerService
	escalationSvc  EscalationService
	bus            redis.PassBus
}

func NewIntelligenceService(
	baseLog *logger.Logger,
	db *gorm.DB,
	obsRepo repos.ObservationRepo,
	passRepo repos.PipelinePassRepo,
	resolveCfg TenantConfigResolver,
	baselineSvc BaselineService,
	anomalySvc AnomalyService,
	riskSvc RiskService,
	prioritizerSvc PrioritizerService,
	escalationSvc EscalationService,
	bus redis.PassBus,
) IntelligenceService {
	return &intelligenceService{
		log:            baseLog.With("service", "IntelligenceService"),
		db:             db,
		obsRepo:        obsRepo,
		passRepo:       passRepo,
		resolveCfg:     resolveCfg,
		baselineSvc:    baselineSvc,
		anomalySvc:     anomalySvc,
		riskSvc:        riskSvc,
		prioritizerSvc: prioritizerSvc,
		escalationSvc:  escalationSvc,
		bus:            bus,
	}
}

func (s *intelligenceService) RecentPasses(ctx context.Context, tenantID uuid.UUID, limit int) ([]types.PipelinePass, error) {
	return s.passRepo.ListRecent(ctx, nil, tenantID, limit)
}

func (s *intelligenceService) RunPass(ctx context.Context, tenantID uuid.UUID) (*types.PipelinePass, error) {
	if s.bus != nil {
		acquired, err := s.bus.AcquireLock(ctx, tenantID, 15*time.Minute)
		if err != nil {
			return nil, fmt.Errorf("acquire pass lock: %w", err)
		}
		if !acquired {
			return nil, fmt.Errorf("%w: tenant %s", apierr.ErrPassInProgress, tenantID)
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.bus.ReleaseLock(releaseCtx, tenantID); err != nil {
				s.log.Warn("Pass lock release failed", "tenant_id", tenantID, "error", err)
			}
		}()
	}

	cfg, err := s.resolveCfg(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	// The snapshot clock is truncated to the bucket boundary so every stage of
	// this pass sees the same window edges.
	asOf := BucketStart(time.Now().UTC(), cfg.BucketMinutes)
	started := time.Now().UTC()

	pass := &types.PipelinePass{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Status:    types.PassRunning,
		StartedAt: started,
	}
	if err := s.passRepo.Create(ctx, nil, pass); err != nil {
		return nil, fmt.Errorf("create pass record: %w", err)
	}
	s.log.Info("Pipeline pass started", "pass_id", pass.ID, "tenant_id", tenantID, "as_of", asOf)

	if err := s.runStages(ctx, pass, asOf, cfg); err != nil {
		if ctx.Err() != nil {
			pass.Status = types.PassCancelled
		} else {
			pass.Status = types.PassFailed
		}
		if finErr := s.passRepo.Finish(context.WithoutCancel(ctx), nil, pass); finErr != nil {
			s.log.Error("Pass record finish failed", "pass_id", pass.ID, "error", finErr)
		}
		return pass, err
	}

	pass.Status = types.PassCompleted
	if err := s.passRepo.Finish(ctx, nil, pass); err != nil {
		return pass, fmt.Errorf("finish pass record: %w", err)
	}
	s.log.Info("Pipeline pass completed",
		"pass_id", pass.ID,
		"tenant_id", tenantID,
		"baselines_updated", pass.BaselinesUpdated,
		"anomalies_detected", pass.AnomaliesDetected,
		"risks_scored", pass.RisksScored,
		"issues_prioritized", pass.IssuesPrioritized,
		"escalations_opened", pass.EscalationsOpened,
		"failed_subjects", pass.FailedSubjects,
	)

	s.publish(pass)
	return pass, nil
}

func (s *intelligenceService) runStages(ctx context.Context, pass *types.PipelinePass, asOf time.Time, cfg config.Pipeline) error {
	window := time.Duration(cfg.BaselineWindowDays) * 24 * time.Hour

	observed, err := s.obsRepo.CountWindow(ctx, nil, pass.TenantID, asOf.Add(-window), asOf)
	if err != nil {
		return fmt.Errorf("count observations: %w", err)
	}
	pass.ObservationsAggregated = int(observed)

	subjects, err := s.obsRepo.ListSubjects(ctx, nil, pass.TenantID, asOf.Add(-window), asOf)
	if err != nil {
		return fmt.Errorf("list subjects: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.WorkerConcurrency)

	for _, subject := range subjects {
		subject := subject
		g.Go(func() error {
			baselines, anomalies, risks, err := s.runSubject(gctx, pass.TenantID, subject, asOf, cfg)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// One broken subject must not take the tenant's pass down.
				pass.FailedSubjects++
				s.log.Error("Subject stage failed",
					"pass_id", pass.ID, "subject_id", subject.SubjectID, "error", err)
				return gctx.Err()
			}
			pass.BaselinesUpdated += baselines
			pass.AnomaliesDetected += anomalies
			pass.RisksScored += risks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("subject fan-out: %w", err)
	}

	prioritized, err := s.prioritizerSvc.PrioritizeTenant(ctx, nil, pass.TenantID, asOf, cfg)
	if err != nil {
		return fmt.Errorf("prioritize tenant: %w", err)
	}
	pass.IssuesPrioritized = prioritized

	opened, err := s.escalationSvc.SyncTenant(ctx, nil, pass.TenantID, asOf, cfg)
	if err != nil {
		return fmt.Errorf("sync escalations: %w", err)
	}
	pass.EscalationsOpened = opened
	return nil
}

// runSubject executes the per-subject stages inside one transaction, so a
// subject either lands all of its baselines, anomalies and scores or none.
func (s *intelligenceService) runSubject(ctx context.Context, tenantID uuid.UUID, subject repos.SubjectKey, asOf time.Time, cfg config.Pipeline) (baselines, anomalies, risks int, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		baselines, txErr = s.baselineSvc.RecomputeSubject(ctx, tx, tenantID, subject, asOf, cfg)
		if txErr != nil {
			return txErr
		}
		anomalies, txErr = s.anomalySvc.DetectSubject(ctx, tx, tenantID, subject, asOf, cfg)
		if txErr != nil {
			return txErr
		}
		risks, txErr = s.riskSvc.ScoreSubject(ctx, tx, tenantID, subject, asOf, cfg)
		return txErr
	})
	return baselines, anomalies, risks, err
}

func (s *intelligenceService) publish(pass *types.PipelinePass) {
	if s.bus == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	finished := time.Now().UTC()
	if pass.FinishedAt != nil {
		finished = *pass.FinishedAt
	}
	if err := s.bus.Publish(ctx, redis.PassEvent{
		PassID:            pass.ID,
		TenantID:          pass.TenantID,
		Status:            string(pass.Status),
		IssuesPrioritized: pass.IssuesPrioritized,
		EscalationsOpened: pass.EscalationsOpened,
		FinishedAt:        finished,
	}); err != nil {
		s.log.Warn("Pass event publish failed", "pass_id", pass.ID, "error", err)
	}
}
