package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/caresignal/caresignal-backend/internal/config"
	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/repos"
	"github.com/caresignal/caresignal-backend/internal/types"
)

// PrioritizerService folds current risk scores into the single global
// worklist. Categories are deliberately not partitioned before ranking: a
// caregiver burnout risk competes directly with a vitals blip.
type PrioritizerService interface {
	PrioritizeTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, asOf time.Time, cfg config.Pipeline) (int, error)
	ListIssues(ctx context.Context, tenantID uuid.UUID, statuses []types.IssueStatus, limit int) ([]types.PrioritizedIssue, error)
	GetIssue(ctx context.Context, id uuid.UUID) (*types.PrioritizedIssue, error)
}

type prioritizerService struct {
	log       *logger.Logger
	riskRepo  repos.RiskScoreRepo
	issueRepo repos.IssueRepo
	escRepo   repos.EscalationRepo
}

func NewPrioritizerService(baseLog *logger.Logger, riskRepo repos.RiskScoreRepo, issueRepo repos.IssueRepo, escRepo repos.EscalationRepo) PrioritizerService {
	return &prioritizerService{
		log:       baseLog.With("service", "PrioritizerService"),
		riskRepo:  riskRepo,
		issueRepo: issueRepo,
		escRepo:   escRepo,
	}
}

func (s *prioritizerService) ListIssues(ctx context.Context, tenantID uuid.UUID, statuses []types.IssueStatus, limit int) ([]types.PrioritizedIssue, error) {
	return s.issueRepo.ListWorklist(ctx, nil, tenantID, statuses, limit)
}

func (s *prioritizerService) GetIssue(ctx context.Context, id uuid.UUID) (*types.PrioritizedIssue, error) {
	return s.issueRepo.Get(ctx, nil, id)
}

func (s *prioritizerService) PrioritizeTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, asOf time.Time, cfg config.Pipeline) (int, error) {
	scores, err := s.riskRepo.ListCurrent(ctx, tx, tenantID, "", cfg.PassScanLimit)
	if err != nil {
		return 0, fmt.Errorf("list current risk scores: %w", err)
	}

	prioritized := 0
	for i := range scores {
		score := &scores[i]
		id := issueID(tenantID, score.SubjectID, score.RiskType)
		existing, err := s.issueRepo.Get(ctx, tx, id)
		if err != nil {
			return prioritized, err
		}
		// New issues only open above the floor; existing ones keep getting
		// rescored so a fading risk sinks down the list instead of freezing.
		if existing == nil && score.Score < cfg.MinScoreFloor {
			continue
		}
		if existing != nil && !existing.Status.Open() {
			continue
		}

		urgency, err := s.urgency(ctx, tx, id, score, asOf)
		if err != nil {
			return prioritized, err
		}
		severity := round6(score.Score / 100)
		priority := round6(urgency * severity * score.Confidence)

		riskIDsJSON, err := json.Marshal([]uuid.UUID{score.ID})
		if err != nil {
			return prioritized, fmt.Errorf("marshal risk score ids: %w", err)
		}
		row := &types.PrioritizedIssue{
			ID:               id,
			TenantID:         tenantID,
			SubjectID:        score.SubjectID,
			SubjectType:      score.SubjectType,
			Category:         score.Category,
			RiskType:         score.RiskType,
			Title:            issueTitle(score),
			Description:      issueDescription(score),
			Urgency:          urgency,
			Severity:         severity,
			Confidence:       score.Confidence,
			Priority:         priority,
			Status:           types.IssueNew,
			RiskScoreIDs:     datatypes.JSON(riskIDsJSON),
			SuggestedActions: score.Interventions,
			FactorsHash:      issueFactorsHash(score),
			CreatedAt:        asOf,
			UpdatedAt:        asOf,
		}
		if err := s.issueRepo.UpsertScores(ctx, tx, row); err != nil {
			return prioritized, err
		}
		prioritized++
	}
	return prioritized, nil
}

// urgency captures time-sensitivity: the risk level sets the base, a
// worsening trend raises it, and an escalation close to (or past) its
// deadline dominates everything else.
func (s *prioritizerService) urgency(ctx context.Context, tx *gorm.DB, issueID uuid.UUID, score *types.RiskScore, asOf time.Time) (float64, error) {
	base := float64(levelRank(score.Level)) / 4
	if score.Trend == types.TrendIncreasing {
		base = clamp(base*1.25, 0, 1)
	}

	esc, err := s.escRepo.FindOpenByIssue(ctx, tx, issueID)
	if err != nil {
		return 0, err
	}
	if esc != nil {
		if esc.Breached(asOf) {
			return 1, nil
		}
		sla := time.Duration(esc.SLAHours * float64(time.Hour))
		remaining := esc.RequiredResponseBy.Sub(asOf)
		if sla > 0 && remaining < sla/4 {
			base = clamp(base+0.25, 0, 1)
		}
	}
	return round6(base), nil
}

func levelRank(l types.RiskLevel) int {
	switch l {
	case types.RiskLevelCritical:
		return 4
	case types.RiskLevelHigh:
		return 3
	case types.RiskLevelMedium:
		return 2
	default:
		return 1
	}
}

func issueTitle(score *types.RiskScore) string {
	label := strings.ReplaceAll(score.RiskType, "_", " ")
	level := string(score.Level)
	if len(level) > 1 {
		level = level[:1] + strings.ToLower(level[1:])
	}
	return fmt.Sprintf("%s %s risk for %s", level, label, strings.ToLower(string(score.SubjectType)))
}

func issueDescription(score *types.RiskScore) string {
	var factors []types.ContributingFactor
	_ = json.Unmarshal(score.Factors, &factors)
	if len(factors) == 0 {
		return fmt.Sprintf("Risk score %.0f/100 with confidence %.2f.", score.Score, score.Confidence)
	}
	return fmt.Sprintf("Risk score %.0f/100 with confidence %.2f. Leading factor: %s.",
		score.Score, score.Confidence, factors[0].Description)
}

func issueFactorsHash(score *types.RiskScore) string {
	return hashCanonical(string(score.Factors) + "|" + fmt.Sprintf("%.6f|%.6f", score.Score, score.Confidence))
}
