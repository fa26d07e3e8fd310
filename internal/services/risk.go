package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/caresignal/caresignal-backend/internal/config"
	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/repos"
	"github.com/caresignal/caresignal-backend/internal/types"
)

// Risk types, one per category. The risk type is the unit a subject's
// current score and history hang off.
var riskTypeByCategory = map[types.RiskCategory]string{
	types.CategoryResidentHealth:    "vitals_instability",
	types.CategoryMedicationSafety:  "medication_nonadherence",
	types.CategoryCaregiverWorkload: "caregiver_burnout",
	types.CategoryCareOperations:    "care_delivery_gap",
}

var interventionsByCategory = map[types.RiskCategory][]string{
	types.CategoryResidentHealth:    {"Schedule a same-day vitals recheck", "Notify the attending nurse for clinical review"},
	types.CategoryMedicationSafety:  {"Verify the medication administration record", "Arrange a pharmacist adherence consult"},
	types.CategoryCaregiverWorkload: {"Review the caregiver's shift schedule", "Rebalance assignments across the care team"},
	types.CategoryCareOperations:    {"Follow up on overdue supervisor responses", "Audit open care tasks for this subject"},
}

// RiskService combines open anomalies, rule triggers, and static contextual
// weights into per (subject, risk type) scores. Scoring is a pure function
// of the window snapshot: same inputs, same bytes.
type RiskService interface {
	ScoreSubject(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, subject repos.SubjectKey, asOf time.Time, cfg config.Pipeline) (int, error)
	ListCurrent(ctx context.Context, tenantID uuid.UUID, category types.RiskCategory, limit int) ([]types.RiskScore, error)
}

type riskService struct {
	log      *logger.Logger
	obsRepo  repos.ObservationRepo
	anomRepo repos.AnomalyRepo
	riskRepo repos.RiskScoreRepo
	rules    *ruleEvaluator
}

func NewRiskService(baseLog *logger.Logger, obsRepo repos.ObservationRepo, anomRepo repos.AnomalyRepo, riskRepo repos.RiskScoreRepo, escRepo repos.EscalationRepo, issueRepo repos.IssueRepo) RiskService {
	return &riskService{
		log:      baseLog.With("service", "RiskService"),
		obsRepo:  obsRepo,
		anomRepo: anomRepo,
		riskRepo: riskRepo,
		rules:    &ruleEvaluator{obsRepo: obsRepo, escRepo: escRepo, issueRepo: issueRepo},
	}
}

func (s *riskService) ListCurrent(ctx context.Context, tenantID uuid.UUID, category types.RiskCategory, limit int) ([]types.RiskScore, error) {
	return s.riskRepo.ListCurrent(ctx, nil, tenantID, category, limit)
}

func (s *riskService) ScoreSubject(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, subject repos.SubjectKey, asOf time.Time, cfg config.Pipeline) (int, error) {
	window := time.Duration(cfg.BaselineWindowDays) * 24 * time.Hour
	from := asOf.Add(-window)

	anomalies, err := s.anomRepo.ListWindow(ctx, tx, tenantID, subject.SubjectID, from, asOf)
	if err != nil {
		return 0, fmt.Errorf("list anomalies: %w", err)
	}
	triggers, err := s.rules.Evaluate(ctx, tx, tenantID, subject, asOf, cfg)
	if err != nil {
		return 0, fmt.Errorf("evaluate rules: %w", err)
	}

	byCategory := map[types.RiskCategory]*categoryInputs{}
	for i := range anomalies {
		a := &anomalies[i]
		// Favorable deviations are recorded but never add risk.
		if a.Polarity != types.PolarityAdverse {
			continue
		}
		spec, ok := types.LookupMetric(a.MetricType)
		if !ok {
			continue
		}
		in := ensureCategory(byCategory, spec.DefaultCategory)
		in.anomalies = append(in.anomalies, a)
	}
	for i := range triggers {
		t := &triggers[i]
		in := ensureCategory(byCategory, t.Category)
		in.triggers = append(in.triggers, t)
	}

	scored := 0
	for _, category := range orderedCategories(byCategory) {
		in := byCategory[category]
		created, err := s.scoreCategory(ctx, tx, tenantID, subject, category, in, from, asOf, cfg)
		if err != nil {
			return scored, err
		}
		if created {
			scored++
		}
	}
	return scored, nil
}

type categoryInputs struct {
	anomalies []*types.Anomaly
	triggers  []*ruleTrigger
}

func ensureCategory(m map[types.RiskCategory]*categoryInputs, c types.RiskCategory) *categoryInputs {
	if in, ok := m[c]; ok {
		return in
	}
	in := &categoryInputs{}
	m[c] = in
	return in
}

func orderedCategories(m map[types.RiskCategory]*categoryInputs) []types.RiskCategory {
	out := make([]types.RiskCategory, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *riskService) scoreCategory(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, subject repos.SubjectKey, category types.RiskCategory, in *categoryInputs, from, asOf time.Time, cfg config.Pipeline) (bool, error) {
	riskType := riskTypeByCategory[category]

	factors := make([]types.ContributingFactor, 0, len(in.anomalies)+len(in.triggers))
	anomalyIDs := make([]uuid.UUID, 0, len(in.anomalies))
	metricsInvolved := map[string]struct{}{}
	minConfidence := 1.0

	for _, a := range in.anomalies {
		spec, _ := types.LookupMetric(a.MetricType)
		weight := round6(0.85 * spec.RiskWeight * severityFraction(a.Severity))
		deviation := fmt.Sprintf("z=%.1f", a.ZScore)
		if a.ZScore == 0 {
			deviation = fmt.Sprintf("%.0f%% off baseline", a.AbsDeviationPct)
		}
		factors = append(factors, types.ContributingFactor{
			Factor:      fmt.Sprintf("anomaly:%s", a.MetricType),
			Weight:      weight,
			Description: fmt.Sprintf("%s reading of %.1f deviates %s from the %.1f baseline (%s)", a.MetricType, a.ObservedValue, deviation, a.BaselineMean, a.Severity),
			Confidence:  a.SourceConfidence.Value(),
		})
		anomalyIDs = append(anomalyIDs, a.ID)
		metricsInvolved[a.MetricType] = struct{}{}
		if c := a.SourceConfidence.Value(); c < minConfidence {
			minConfidence = c
		}
	}

	for _, t := range in.triggers {
		factors = append(factors, types.ContributingFactor{
			Factor:      fmt.Sprintf("rule:%s", t.RuleID),
			Weight:      round6(t.Weight * t.Contribution / 100),
			Description: t.Description,
			Confidence:  t.Confidence,
		})
		if t.MetricType != "" {
			metricsInvolved[t.MetricType] = struct{}{}
		}
		if t.Confidence < minConfidence {
			minConfidence = t.Confidence
		}
	}

	if len(factors) == 0 {
		return false, nil
	}

	// Weighted sum of normalized contributions, clipped to the score range.
	score := 0.0
	for _, f := range factors {
		score += f.Weight * 100
	}
	score = round6(clamp(score, 0, 100))

	completeness, err := s.completeness(ctx, tx, tenantID, subject.SubjectID, metricsInvolved, from, asOf, cfg)
	if err != nil {
		return false, err
	}
	confidence := round6(minConfidence * completeness)

	sort.SliceStable(factors, func(i, j int) bool {
		if factors[i].Weight != factors[j].Weight {
			return factors[i].Weight > factors[j].Weight
		}
		return factors[i].Factor < factors[j].Factor
	})
	sort.Slice(anomalyIDs, func(i, j int) bool { return anomalyIDs[i].String() < anomalyIDs[j].String() })

	trend, err := s.scoreTrend(ctx, tx, tenantID, subject.SubjectID, riskType, score, asOf, cfg)
	if err != nil {
		return false, err
	}

	factorsJSON, err := json.Marshal(factors)
	if err != nil {
		return false, fmt.Errorf("marshal factors: %w", err)
	}
	idsJSON, err := json.Marshal(anomalyIDs)
	if err != nil {
		return false, fmt.Errorf("marshal anomaly ids: %w", err)
	}
	interventionsJSON, err := json.Marshal(interventionsByCategory[category])
	if err != nil {
		return false, fmt.Errorf("marshal interventions: %w", err)
	}

	factorsHash := hashCanonical(string(factorsJSON) + "|" + string(idsJSON))
	row := &types.RiskScore{
		ID:            riskScoreID(tenantID, subject.SubjectID, riskType, asOf, factorsHash),
		TenantID:      tenantID,
		SubjectID:     subject.SubjectID,
		SubjectType:   subject.SubjectType,
		Category:      category,
		RiskType:      riskType,
		Score:         score,
		Confidence:    confidence,
		Level:         cfg.RiskLevelFor(score),
		Factors:       datatypes.JSON(factorsJSON),
		Interventions: datatypes.JSON(interventionsJSON),
		AnomalyIDs:    datatypes.JSON(idsJSON),
		Trend:         trend,
		WindowStart:   from,
		WindowEnd:     asOf,
		ComputedAt:    asOf,
	}
	created, err := s.riskRepo.InsertIdempotent(ctx, tx, row)
	if err != nil {
		return false, err
	}
	if created {
		s.log.Info("Risk scored",
			"subject_id", subject.SubjectID,
			"risk_type", riskType,
			"score", score,
			"level", row.Level,
			"confidence", confidence,
		)
	}
	return created, nil
}

// completeness is the observed-to-expected sample ratio across the metrics
// feeding this score; the scarcest metric bounds the whole category so a
// lone reading cannot masquerade as a well-evidenced score.
func (s *riskService) completeness(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, metrics map[string]struct{}, from, asOf time.Time, cfg config.Pipeline) (float64, error) {
	if len(metrics) == 0 {
		return 1, nil
	}
	ratio := 1.0
	names := make([]string, 0, len(metrics))
	for m := range metrics {
		names = append(names, m)
	}
	sort.Strings(names)
	for _, metric := range names {
		spec, ok := types.LookupMetric(metric)
		if !ok || spec.SamplesPerDay <= 0 {
			continue
		}
		obs, err := s.obsRepo.ListWindow(ctx, tx, tenantID, subjectID, metric, from, asOf)
		if err != nil {
			return 0, err
		}
		expected := spec.SamplesPerDay * float64(cfg.BaselineWindowDays)
		if expected < 1 {
			expected = 1
		}
		r := math.Min(float64(len(bucketLatest(obs)))/expected, 1)
		if r < ratio {
			ratio = r
		}
	}
	return ratio, nil
}

func (s *riskService) scoreTrend(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, riskType string, score float64, asOf time.Time, cfg config.Pipeline) (types.TrendDirection, error) {
	history, err := s.riskRepo.History(ctx, tx, tenantID, subjectID, riskType, 5)
	if err != nil {
		return types.TrendInsufficientData, err
	}
	var prior *types.RiskScore
	for i := range history {
		if history[i].WindowEnd.Before(asOf) {
			prior = &history[i]
			break
		}
	}
	if prior == nil {
		return types.TrendInsufficientData, nil
	}
	if prior.Score == 0 {
		if score > 0 {
			return types.TrendIncreasing, nil
		}
		return types.TrendStable, nil
	}
	changePct := (score - prior.Score) / prior.Score * 100
	if math.Abs(changePct) <= cfg.TrendDeadbandPct {
		return types.TrendStable, nil
	}
	if changePct > 0 {
		return types.TrendIncreasing, nil
	}
	return types.TrendDecreasing, nil
}

func severityFraction(s types.AnomalySeverity) float64 {
	return float64(s.Rank()) / 4
}
