package services

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/caresignal/caresignal-backend/internal/types"
)

func TestLevelRank(t *testing.T) {
	ranks := map[types.RiskLevel]int{
		types.RiskLevelLow:      1,
		types.RiskLevelMedium:   2,
		types.RiskLevelHigh:     3,
		types.RiskLevelCritical: 4,
	}
	for level, want := range ranks {
		if got := levelRank(level); got != want {
			t.Fatalf("rank %s: want=%d got=%d", level, want, got)
		}
	}
}

func TestIssueTitle(t *testing.T) {
	score := &types.RiskScore{
		RiskType:    "caregiver_burnout",
		Level:       types.RiskLevelHigh,
		SubjectType: types.SubjectCaregiver,
	}
	got := issueTitle(score)
	want := "High caregiver burnout risk for caregiver"
	if got != want {
		t.Fatalf("title: want=%q got=%q", want, got)
	}
}

func TestIssueDescriptionWithoutFactors(t *testing.T) {
	score := &types.RiskScore{Score: 62, Confidence: 0.8}
	got := issueDescription(score)
	want := "Risk score 62/100 with confidence 0.80."
	if got != want {
		t.Fatalf("description: want=%q got=%q", want, got)
	}
}

func TestIssueFactorsHashStability(t *testing.T) {
	score := &types.RiskScore{
		Score:      62,
		Confidence: 0.8,
		Factors:    datatypes.JSON([]byte(`[{"factor":"anomaly:heart_rate","weight":0.6}]`)),
	}
	first := issueFactorsHash(score)
	second := issueFactorsHash(score)
	if first != second {
		t.Fatalf("hash not stable: %s vs %s", first, second)
	}

	changed := &types.RiskScore{
		Score:      63,
		Confidence: 0.8,
		Factors:    score.Factors,
	}
	if issueFactorsHash(changed) == first {
		t.Fatalf("hash should change when the score changes")
	}
}

func TestDeterministicIDsAreStable(t *testing.T) {
	tenant := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	subject := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	a := issueID(tenant, subject, "vitals_instability")
	b := issueID(tenant, subject, "vitals_instability")
	if a != b {
		t.Fatalf("same inputs must derive the same issue id: %s vs %s", a, b)
	}
	c := issueID(tenant, subject, "caregiver_burnout")
	if a == c {
		t.Fatalf("different risk types must derive different issue ids")
	}
}
