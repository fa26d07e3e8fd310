package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caresignal/caresignal-backend/internal/apierr"
	"github.com/caresignal/caresignal-backend/internal/config"
	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/repos"
	"github.com/caresignal/caresignal-backend/internal/types"
)

// EscalationService binds high-priority issues to SLA clocks and guards the
// forward-only response state machine. Acknowledgement is the only
// human-facing mutation in the pipeline; it is a single optimistic
// transition, never a blind overwrite.
type EscalationService interface {
	SyncTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, asOf time.Time, cfg config.Pipeline) (int, error)
	Acknowledge(ctx context.Context, escalationID, userID uuid.UUID, expectedVersion int) (*types.Escalation, error)
	Start(ctx context.Context, escalationID, userID uuid.UUID, expectedVersion int) (*types.Escalation, error)
	Resolve(ctx context.Context, escalationID, userID uuid.UUID, expectedVersion int) (*types.Escalation, error)
	Assign(ctx context.Context, escalationID, userID uuid.UUID) (*types.Escalation, error)
	ListOpen(ctx context.Context, tenantID uuid.UUID, limit int) ([]types.Escalation, error)
}

type escalationService struct {
	log       *logger.Logger
	escRepo   repos.EscalationRepo
	issueRepo repos.IssueRepo
}

func NewEscalationService(baseLog *logger.Logger, escRepo repos.EscalationRepo, issueRepo repos.IssueRepo) EscalationService {
	return &escalationService{
		log:       baseLog.With("service", "EscalationService"),
		escRepo:   escRepo,
		issueRepo: issueRepo,
	}
}

// SyncTenant opens PENDING escalations for open issues whose composite
// priority crosses the configured threshold. The derived escalation id makes
// re-running a pass a no-op; an issue with an open escalation is skipped.
func (s *escalationService) SyncTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, asOf time.Time, cfg config.Pipeline) (int, error) {
	issues, err := s.issueRepo.ListWorklist(ctx, tx, tenantID, []types.IssueStatus{types.IssueNew, types.IssueAcknowledged, types.IssueInProgress}, cfg.PassScanLimit)
	if err != nil {
		return 0, fmt.Errorf("list open issues: %w", err)
	}

	opened := 0
	for i := range issues {
		issue := &issues[i]
		if issue.Priority < cfg.EscalationPriorityThreshold {
			continue
		}
		existing, err := s.escRepo.FindOpenByIssue(ctx, tx, issue.ID)
		if err != nil {
			return opened, err
		}
		if existing != nil {
			continue
		}

		tier := cfg.RiskLevelFor(issue.Severity * 100)
		slaHours := cfg.SLAHoursFor(tier)
		row := &types.Escalation{
			ID:                 escalationID(issue.ID, asOf),
			TenantID:           tenantID,
			IssueID:            issue.ID,
			Priority:           tier,
			SLAHours:           slaHours,
			RequiredResponseBy: asOf.Add(time.Duration(slaHours * float64(time.Hour))),
			Status:             types.EscalationPending,
			Version:            1,
			CreatedAt:          asOf,
			UpdatedAt:          asOf,
		}
		created, err := s.escRepo.CreateIdempotent(ctx, tx, row)
		if err != nil {
			return opened, err
		}
		if created {
			opened++
			s.log.Info("Escalation opened",
				"issue_id", issue.ID,
				"priority", tier,
				"sla_hours", slaHours,
			)
		}
	}
	return opened, nil
}

func (s *escalationService) Acknowledge(ctx context.Context, escalationID, userID uuid.UUID, expectedVersion int) (*types.Escalation, error) {
	now := time.Now().UTC()
	return s.transition(ctx, escalationID, expectedVersion, types.EscalationAcknowledged, repos.EscalationUpdate{
		Status:         types.EscalationAcknowledged,
		AcknowledgedBy: &userID,
		AcknowledgedAt: &now,
	}, types.IssueAcknowledged, &userID)
}

func (s *escalationService) Start(ctx context.Context, escalationID, userID uuid.UUID, expectedVersion int) (*types.Escalation, error) {
	return s.transition(ctx, escalationID, expectedVersion, types.EscalationInProgress, repos.EscalationUpdate{
		Status: types.EscalationInProgress,
	}, types.IssueInProgress, &userID)
}

func (s *escalationService) Resolve(ctx context.Context, escalationID, userID uuid.UUID, expectedVersion int) (*types.Escalation, error) {
	now := time.Now().UTC()
	return s.transition(ctx, escalationID, expectedVersion, types.EscalationResolved, repos.EscalationUpdate{
		Status:     types.EscalationResolved,
		ResolvedAt: &now,
	}, types.IssueResolved, &userID)
}

func (s *escalationService) transition(ctx context.Context, escalationID uuid.UUID, expectedVersion int, next types.EscalationStatus, update repos.EscalationUpdate, issueStatus types.IssueStatus, actorID *uuid.UUID) (*types.Escalation, error) {
	esc, err := s.escRepo.Get(ctx, nil, escalationID)
	if err != nil {
		return nil, fmt.Errorf("load escalation: %w", err)
	}
	if esc == nil {
		return nil, apierr.ErrNotFound
	}
	if !esc.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", apierr.ErrInvalidTransition, esc.Status, next)
	}

	applied, err := s.escRepo.TransitionOptimistic(ctx, nil, escalationID, expectedVersion, update)
	if err != nil {
		return nil, fmt.Errorf("apply transition: %w", err)
	}
	if !applied {
		// The row moved between our read and write; the caller must re-read.
		return nil, fmt.Errorf("%w: escalation version %d is no longer current", apierr.ErrStaleState, expectedVersion)
	}

	if _, err := s.issueRepo.Transition(ctx, nil, esc.IssueID, issueStatus, actorID); err != nil {
		s.log.Warn("Issue status projection failed after escalation transition",
			"escalation_id", escalationID, "issue_id", esc.IssueID, "error", err)
	}

	return s.escRepo.Get(ctx, nil, escalationID)
}

func (s *escalationService) Assign(ctx context.Context, escalationID, userID uuid.UUID) (*types.Escalation, error) {
	esc, err := s.escRepo.Get(ctx, nil, escalationID)
	if err != nil {
		return nil, fmt.Errorf("load escalation: %w", err)
	}
	if esc == nil {
		return nil, apierr.ErrNotFound
	}
	if esc.Status == types.EscalationResolved {
		return nil, fmt.Errorf("%w: cannot assign a resolved escalation", apierr.ErrInvalidTransition)
	}
	if _, err := s.escRepo.Assign(ctx, nil, escalationID, userID); err != nil {
		return nil, fmt.Errorf("assign escalation: %w", err)
	}
	return s.escRepo.Get(ctx, nil, escalationID)
}

func (s *escalationService) ListOpen(ctx context.Context, tenantID uuid.UUID, limit int) ([]types.Escalation, error) {
	return s.escRepo.ListOpen(ctx, nil, tenantID, limit)
}
