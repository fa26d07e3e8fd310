package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caresignal/caresignal-backend/internal/config"
	"github.com/caresignal/caresignal-backend/internal/repos"
	"github.com/caresignal/caresignal-backend/internal/types"
)

// Rule identifiers. Each rule is a deterministic predicate over the scoring
// window; rules fire independently of anomaly detection and cover patterns
// a single-reading z-score cannot see.
const (
	RuleMissedDoses         = "missed_doses_3plus_7d"
	RuleLowAdherence        = "medication_adherence_below_80"
	RuleExcessiveShiftHours = "shift_hours_over_60_7d"
	RuleUnackedEscalation   = "escalation_unacknowledged_past_sla"
	RuleLowTaskCompletion   = "task_completion_below_70"
)

// ruleTrigger is one fired rule, carrying everything the scorer and the
// narrator need: a weighted contribution, its own confidence, and the
// observation evidence it was evaluated over.
type ruleTrigger struct {
	RuleID         string
	Category       types.RiskCategory
	Description    string
	Weight         float64
	Contribution   float64
	Confidence     float64
	MetricType     string
	ObservationIDs []uuid.UUID
}

type ruleEvaluator struct {
	obsRepo   repos.ObservationRepo
	escRepo   repos.EscalationRepo
	issueRepo repos.IssueRepo
}

// Evaluate runs every rule for one subject over the scoring window ending at
// asOf. The returned order is fixed (rule declaration order) so downstream
// factor lists are deterministic.
func (e *ruleEvaluator) Evaluate(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, subject repos.SubjectKey, asOf time.Time, cfg config.Pipeline) ([]ruleTrigger, error) {
	window := time.Duration(cfg.BaselineWindowDays) * 24 * time.Hour
	from := asOf.Add(-window)

	var out []ruleTrigger

	if subject.SubjectType == types.SubjectResident {
		t, err := e.missedDoses(ctx, tx, tenantID, subject.SubjectID, from, asOf)
		if err != nil {
			return nil, err
		}
		if t != nil {
			out = append(out, *t)
		}
		t, err = e.lowAdherence(ctx, tx, tenantID, subject.SubjectID, from, asOf)
		if err != nil {
			return nil, err
		}
		if t != nil {
			out = append(out, *t)
		}
	}

	if subject.SubjectType == types.SubjectCaregiver {
		t, err := e.excessiveShiftHours(ctx, tx, tenantID, subject.SubjectID, from, asOf)
		if err != nil {
			return nil, err
		}
		if t != nil {
			out = append(out, *t)
		}
		t, err = e.lowTaskCompletion(ctx, tx, tenantID, subject.SubjectID, from, asOf)
		if err != nil {
			return nil, err
		}
		if t != nil {
			out = append(out, *t)
		}
	}

	t, err := e.unackedEscalation(ctx, tx, tenantID, subject.SubjectID, asOf)
	if err != nil {
		return nil, err
	}
	if t != nil {
		out = append(out, *t)
	}

	return out, nil
}

func (e *ruleEvaluator) missedDoses(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, from, to time.Time) (*ruleTrigger, error) {
	obs, err := e.obsRepo.ListWindow(ctx, tx, tenantID, subjectID, types.MetricMissedDoses, from, to)
	if err != nil {
		return nil, err
	}
	buckets := bucketLatest(obs)
	total := 0.0
	minConf := 1.0
	ids := make([]uuid.UUID, 0, len(buckets))
	for _, o := range buckets {
		total += o.Value
		ids = append(ids, o.ID)
		if c := o.SourceConfidence.Value(); c < minConf {
			minConf = c
		}
	}
	if total < 3 {
		return nil, nil
	}
	contribution := clamp(50+(total-3)*15, 0, 100)
	return &ruleTrigger{
		RuleID:         RuleMissedDoses,
		Category:       types.CategoryMedicationSafety,
		Description:    fmt.Sprintf("%.0f missed medication doses recorded over the scoring window", total),
		Weight:         0.9,
		Contribution:   contribution,
		Confidence:     minConf,
		MetricType:     types.MetricMissedDoses,
		ObservationIDs: ids,
	}, nil
}

func (e *ruleEvaluator) lowAdherence(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, from, to time.Time) (*ruleTrigger, error) {
	obs, err := e.obsRepo.ListWindow(ctx, tx, tenantID, subjectID, types.MetricMedicationAdherence, from, to)
	if err != nil {
		return nil, err
	}
	buckets := bucketLatest(obs)
	if len(buckets) == 0 {
		return nil, nil
	}
	latest := buckets[len(buckets)-1]
	if latest.Value >= 80 {
		return nil, nil
	}
	return &ruleTrigger{
		RuleID:         RuleLowAdherence,
		Category:       types.CategoryMedicationSafety,
		Description:    fmt.Sprintf("medication adherence at %.0f%%, below the 80%% threshold", latest.Value),
		Weight:         0.7,
		Contribution:   clamp((80-latest.Value)*2.5, 0, 100),
		Confidence:     latest.SourceConfidence.Value(),
		MetricType:     types.MetricMedicationAdherence,
		ObservationIDs: []uuid.UUID{latest.ID},
	}, nil
}

func (e *ruleEvaluator) excessiveShiftHours(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, from, to time.Time) (*ruleTrigger, error) {
	obs, err := e.obsRepo.ListWindow(ctx, tx, tenantID, subjectID, types.MetricShiftHours, from, to)
	if err != nil {
		return nil, err
	}
	buckets := bucketLatest(obs)
	total := 0.0
	minConf := 1.0
	ids := make([]uuid.UUID, 0, len(buckets))
	for _, o := range buckets {
		total += o.Value
		ids = append(ids, o.ID)
		if c := o.SourceConfidence.Value(); c < minConf {
			minConf = c
		}
	}
	if total <= 60 {
		return nil, nil
	}
	return &ruleTrigger{
		RuleID:         RuleExcessiveShiftHours,
		Category:       types.CategoryCaregiverWorkload,
		Description:    fmt.Sprintf("%.1f shift hours worked over the scoring window, above the 60h threshold", total),
		Weight:         0.8,
		Contribution:   clamp(50+(total-60)*2.5, 0, 100),
		Confidence:     minConf,
		MetricType:     types.MetricShiftHours,
		ObservationIDs: ids,
	}, nil
}

func (e *ruleEvaluator) lowTaskCompletion(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, from, to time.Time) (*ruleTrigger, error) {
	obs, err := e.obsRepo.ListWindow(ctx, tx, tenantID, subjectID, types.MetricTaskCompletionRate, from, to)
	if err != nil {
		return nil, err
	}
	buckets := bucketLatest(obs)
	if len(buckets) == 0 {
		return nil, nil
	}
	latest := buckets[len(buckets)-1]
	if latest.Value >= 70 {
		return nil, nil
	}
	return &ruleTrigger{
		RuleID:         RuleLowTaskCompletion,
		Category:       types.CategoryCareOperations,
		Description:    fmt.Sprintf("task completion rate at %.0f%%, below the 70%% threshold", latest.Value),
		Weight:         0.6,
		Contribution:   clamp((70-latest.Value)*2, 0, 100),
		Confidence:     latest.SourceConfidence.Value(),
		MetricType:     types.MetricTaskCompletionRate,
		ObservationIDs: []uuid.UUID{latest.ID},
	}, nil
}

// unackedEscalation fires when an open escalation tied to this subject has
// blown past its required-response deadline without acknowledgement.
func (e *ruleEvaluator) unackedEscalation(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, asOf time.Time) (*ruleTrigger, error) {
	open, err := e.escRepo.ListOpen(ctx, tx, tenantID, 200)
	if err != nil {
		return nil, err
	}
	breached := 0
	for _, esc := range open {
		if esc.Status != types.EscalationPending || !esc.Breached(asOf) {
			continue
		}
		issue, err := e.issueRepo.Get(ctx, tx, esc.IssueID)
		if err != nil {
			return nil, err
		}
		if issue != nil && issue.SubjectID == subjectID {
			breached++
		}
	}
	if breached == 0 {
		return nil, nil
	}
	return &ruleTrigger{
		RuleID:       RuleUnackedEscalation,
		Category:     types.CategoryCareOperations,
		Description:  fmt.Sprintf("%d escalation(s) past the required response deadline without acknowledgement", breached),
		Weight:       0.8,
		Contribution: clamp(60+float64(breached-1)*20, 0, 100),
		Confidence:   1.0,
	}, nil
}
