package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caresignal/caresignal-backend/internal/config"
	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/repos"
	"github.com/caresignal/caresignal-backend/internal/types"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

type fakeIssueRepo struct {
	worklist []types.PrioritizedIssue
}

func (f *fakeIssueRepo) UpsertScores(ctx context.Context, tx *gorm.DB, row *types.PrioritizedIssue) error {
	return nil
}

func (f *fakeIssueRepo) Get(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PrioritizedIssue, error) {
	for i := range f.worklist {
		if f.worklist[i].ID == id {
			return &f.worklist[i], nil
		}
	}
	return nil, nil
}

func (f *fakeIssueRepo) ListWorklist(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, statuses []types.IssueStatus, limit int) ([]types.PrioritizedIssue, error) {
	return f.worklist, nil
}

func (f *fakeIssueRepo) Transition(ctx context.Context, tx *gorm.DB, id uuid.UUID, to types.IssueStatus, actorID *uuid.UUID) (*types.PrioritizedIssue, error) {
	return nil, nil
}

func (f *fakeIssueRepo) StatusHistory(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) ([]types.IssueStatusEvent, error) {
	return nil, nil
}

type fakeEscalationRepo struct {
	created []types.Escalation
}

func (f *fakeEscalationRepo) Get(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Escalation, error) {
	for i := range f.created {
		if f.created[i].ID == id {
			return &f.created[i], nil
		}
	}
	return nil, nil
}

func (f *fakeEscalationRepo) FindOpenByIssue(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) (*types.Escalation, error) {
	for i := range f.created {
		if f.created[i].IssueID == issueID && f.created[i].Status != types.EscalationResolved {
			return &f.created[i], nil
		}
	}
	return nil, nil
}

func (f *fakeEscalationRepo) CreateIdempotent(ctx context.Context, tx *gorm.DB, row *types.Escalation) (bool, error) {
	for i := range f.created {
		if f.created[i].ID == row.ID {
			return false, nil
		}
	}
	f.created = append(f.created, *row)
	return true, nil
}

func (f *fakeEscalationRepo) TransitionOptimistic(ctx context.Context, tx *gorm.DB, id uuid.UUID, expectedVersion int, update repos.EscalationUpdate) (bool, error) {
	return false, nil
}

func (f *fakeEscalationRepo) Assign(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fakeEscalationRepo) ListOpen(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, limit int) ([]types.Escalation, error) {
	return f.created, nil
}

// A resident charted daily around 72 bpm for a week, then reads 130 bpm.
// Under default configuration that must carry all the way through: CRITICAL
// anomaly, score 85, full-evidence confidence, and a PENDING escalation on
// the critical SLA clock.
func TestSustainedSpikeOpensCriticalEscalation(t *testing.T) {
	cfg := config.Default()

	z, _, severity := deviationSeverity(130, 72, 4, cfg)
	if severity != types.SeverityCritical {
		t.Fatalf("spike severity: want=%q got=%q (z=%.1f)", types.SeverityCritical, severity, z)
	}

	spec, ok := types.LookupMetric(types.MetricHeartRate)
	if !ok {
		t.Fatalf("heart_rate missing from metric catalog")
	}
	weight := round6(0.85 * spec.RiskWeight * severityFraction(severity))
	score := round6(clamp(weight*100, 0, 100))
	if score != 85 {
		t.Fatalf("score: want=85 got=%f", score)
	}
	level := cfg.RiskLevelFor(score)
	if level != types.RiskLevelCritical {
		t.Fatalf("level: want=%q got=%q", types.RiskLevelCritical, level)
	}

	// Eight daily buckets over the seven-day window count as complete
	// evidence; a routine daily charting rhythm must not discount confidence.
	expected := spec.SamplesPerDay * float64(cfg.BaselineWindowDays)
	if expected < 1 {
		expected = 1
	}
	completeness := math.Min(8/expected, 1)
	if completeness != 1 {
		t.Fatalf("completeness for daily readings: want=1 got=%f", completeness)
	}

	confidence := round6(types.SourceConfidenceHigh.Value() * completeness)
	urgency := round6(float64(levelRank(level)) / 4)
	severityFrac := round6(score / 100)
	priority := round6(urgency * severityFrac * confidence)
	if priority < cfg.EscalationPriorityThreshold {
		t.Fatalf("priority %f never crosses the escalation threshold %f", priority, cfg.EscalationPriorityThreshold)
	}

	tenantID := uuid.New()
	asOf := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	issue := types.PrioritizedIssue{
		ID:          uuid.New(),
		TenantID:    tenantID,
		SubjectID:   uuid.New(),
		SubjectType: types.SubjectResident,
		Category:    types.CategoryResidentHealth,
		RiskType:    "vitals_instability",
		Urgency:     urgency,
		Severity:    severityFrac,
		Confidence:  confidence,
		Priority:    priority,
		Status:      types.IssueNew,
		CreatedAt:   asOf,
		UpdatedAt:   asOf,
	}

	escRepo := &fakeEscalationRepo{}
	svc := NewEscalationService(newTestLogger(t), escRepo, &fakeIssueRepo{worklist: []types.PrioritizedIssue{issue}})

	opened, err := svc.SyncTenant(context.Background(), nil, tenantID, asOf, cfg)
	if err != nil {
		t.Fatalf("sync tenant: %v", err)
	}
	if opened != 1 {
		t.Fatalf("escalations opened: want=1 got=%d", opened)
	}
	esc := escRepo.created[0]
	if esc.Status != types.EscalationPending {
		t.Fatalf("status: want=%q got=%q", types.EscalationPending, esc.Status)
	}
	if esc.Priority != types.RiskLevelCritical {
		t.Fatalf("tier: want=%q got=%q", types.RiskLevelCritical, esc.Priority)
	}
	if esc.SLAHours != cfg.SLAHoursCritical {
		t.Fatalf("sla hours: want=%f got=%f", cfg.SLAHoursCritical, esc.SLAHours)
	}
	if want := asOf.Add(15 * time.Minute); !esc.RequiredResponseBy.Equal(want) {
		t.Fatalf("required response by: want=%s got=%s", want, esc.RequiredResponseBy)
	}
}

func TestSyncTenantSkipsBelowThreshold(t *testing.T) {
	cfg := config.Default()
	tenantID := uuid.New()
	asOf := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	issue := types.PrioritizedIssue{
		ID:       uuid.New(),
		TenantID: tenantID,
		Priority: cfg.EscalationPriorityThreshold - 0.01,
		Severity: 0.4,
		Status:   types.IssueNew,
	}

	escRepo := &fakeEscalationRepo{}
	svc := NewEscalationService(newTestLogger(t), escRepo, &fakeIssueRepo{worklist: []types.PrioritizedIssue{issue}})

	opened, err := svc.SyncTenant(context.Background(), nil, tenantID, asOf, cfg)
	if err != nil {
		t.Fatalf("sync tenant: %v", err)
	}
	if opened != 0 || len(escRepo.created) != 0 {
		t.Fatalf("below-threshold issue must not escalate, opened=%d created=%d", opened, len(escRepo.created))
	}
}
