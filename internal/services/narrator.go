package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/caresignal/caresignal-backend/internal/apierr"
	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/repos"
	"github.com/caresignal/caresignal-backend/internal/types"
)

// NarratorService renders an evidence-linked reasoning chain for a
// prioritized issue. Uncertainty is stated, not omitted: every gap the
// pipeline knows about (sparse data, unknown trend, low-confidence sources)
// appears as an explicit limitation.
type NarratorService interface {
	GetExplanation(ctx context.Context, issueID uuid.UUID) (*types.Explanation, error)
}

type narratorService struct {
	log       *logger.Logger
	issueRepo repos.IssueRepo
	riskRepo  repos.RiskScoreRepo
	anomRepo  repos.AnomalyRepo
	explRepo  repos.ExplanationRepo
}

func NewNarratorService(baseLog *logger.Logger, issueRepo repos.IssueRepo, riskRepo repos.RiskScoreRepo, anomRepo repos.AnomalyRepo, explRepo repos.ExplanationRepo) NarratorService {
	return &narratorService{
		log:       baseLog.With("service", "NarratorService"),
		issueRepo: issueRepo,
		riskRepo:  riskRepo,
		anomRepo:  anomRepo,
		explRepo:  explRepo,
	}
}

func (s *narratorService) GetExplanation(ctx context.Context, issueID uuid.UUID) (*types.Explanation, error) {
	issue, err := s.issueRepo.Get(ctx, nil, issueID)
	if err != nil {
		return nil, fmt.Errorf("load issue: %w", err)
	}
	if issue == nil {
		return nil, apierr.ErrNotFound
	}

	// An explanation for the current factor set is reused; a changed factor
	// set supersedes it with a new version.
	existing, err := s.explRepo.GetByHash(ctx, nil, issue.ID, issue.FactorsHash)
	if err != nil {
		return nil, fmt.Errorf("load explanation: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	built, err := s.build(ctx, issue)
	if err != nil {
		return nil, err
	}
	if _, err := s.explRepo.InsertVersion(ctx, nil, built); err != nil {
		return nil, fmt.Errorf("store explanation: %w", err)
	}
	return built, nil
}

func (s *narratorService) build(ctx context.Context, issue *types.PrioritizedIssue) (*types.Explanation, error) {
	var riskIDs []uuid.UUID
	_ = json.Unmarshal(issue.RiskScoreIDs, &riskIDs)
	scores, err := s.riskRepo.ListByIDs(ctx, nil, riskIDs)
	if err != nil {
		return nil, fmt.Errorf("load risk scores: %w", err)
	}

	steps := make([]types.ReasoningStep, 0, 8)
	evidence := make([]types.EvidenceRef, 0, 8)
	limitations := make([]string, 0, 4)
	order := 1

	for i := range scores {
		score := &scores[i]
		var factors []types.ContributingFactor
		_ = json.Unmarshal(score.Factors, &factors)
		var anomalyIDs []uuid.UUID
		_ = json.Unmarshal(score.AnomalyIDs, &anomalyIDs)

		anomalies, err := s.anomRepo.ListByIDs(ctx, nil, anomalyIDs)
		if err != nil {
			return nil, fmt.Errorf("load anomalies: %w", err)
		}
		anomalyByFactor := map[string]*types.Anomaly{}
		for j := range anomalies {
			anomalyByFactor["anomaly:"+anomalies[j].MetricType] = &anomalies[j]
		}

		// One reasoning step per contributing factor, in stored (weight) order.
		for _, f := range factors {
			steps = append(steps, types.ReasoningStep{
				Order:      order,
				Statement:  f.Description,
				Confidence: f.Confidence,
			})
			order++

			switch {
			case strings.HasPrefix(f.Factor, "anomaly:"):
				if a, ok := anomalyByFactor[f.Factor]; ok {
					evidence = append(evidence,
						types.EvidenceRef{Kind: types.EvidenceAnomaly, RefID: a.ID, MetricType: a.MetricType},
						types.EvidenceRef{Kind: types.EvidenceObservation, RefID: a.ObservationID, MetricType: a.MetricType},
					)
				}
			case strings.HasPrefix(f.Factor, "rule:"):
				evidence = append(evidence, types.EvidenceRef{
					Kind:   types.EvidenceRuleTrigger,
					RuleID: strings.TrimPrefix(f.Factor, "rule:"),
				})
			}
		}

		steps = append(steps, types.ReasoningStep{
			Order:      order,
			Statement:  fmt.Sprintf("Combined weighted factors yield a %s score of %.0f/100 for %s.", score.Category, score.Score, strings.ReplaceAll(score.RiskType, "_", " ")),
			Confidence: score.Confidence,
		})
		order++

		if score.Trend == types.TrendInsufficientData {
			limitations = append(limitations, "Insufficient historical data to establish a trend direction for this risk; prior scoring windows are missing or too sparse.")
		}
		if score.Confidence < 0.7 {
			limitations = append(limitations, fmt.Sprintf("Overall confidence is %.2f; the underlying observations are sparse or come from lower-confidence sources, so this assessment cannot rule out a benign explanation.", score.Confidence))
		}
	}

	if len(steps) == 0 {
		limitations = append(limitations, "No contributing factor records are available for this issue; the original scoring inputs may predate retention.")
		steps = append(steps, types.ReasoningStep{
			Order:      1,
			Statement:  "The issue is present in the worklist but its factor breakdown could not be reconstructed.",
			Confidence: issue.Confidence,
		})
	}

	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return nil, fmt.Errorf("marshal steps: %w", err)
	}
	evidenceJSON, err := json.Marshal(evidence)
	if err != nil {
		return nil, fmt.Errorf("marshal evidence: %w", err)
	}
	limitationsJSON, err := json.Marshal(limitations)
	if err != nil {
		return nil, fmt.Errorf("marshal limitations: %w", err)
	}

	return &types.Explanation{
		ID:          uuid.New(),
		IssueID:     issue.ID,
		FactorsHash: issue.FactorsHash,
		Summary: fmt.Sprintf("%s. Composite priority %.2f from urgency %.2f, severity %.2f, and confidence %.2f across %d reasoning step(s).",
			issue.Title, issue.Priority, issue.Urgency, issue.Severity, issue.Confidence, len(steps)),
		Steps:          datatypes.JSON(stepsJSON),
		Evidence:       datatypes.JSON(evidenceJSON),
		ConfidenceNote: confidenceNote(issue, steps),
		Limitations:    datatypes.JSON(limitationsJSON),
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// confidenceNote explains why the confidence is what it is: it can never
// exceed the weakest link in the evidence chain.
func confidenceNote(issue *types.PrioritizedIssue, steps []types.ReasoningStep) string {
	min := 1.0
	for _, st := range steps {
		if st.Confidence < min {
			min = st.Confidence
		}
	}
	return fmt.Sprintf("Issue confidence %.2f is bounded by the lowest-confidence reasoning step (%.2f); confidence never increases along the inference chain.", issue.Confidence, min)
}
