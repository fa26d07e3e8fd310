package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/caresignal/caresignal-backend/internal/types"
)

func TestSeverityFraction(t *testing.T) {
	cases := map[types.AnomalySeverity]float64{
		types.SeverityMedium:   0.5,
		types.SeverityHigh:     0.75,
		types.SeverityCritical: 1,
	}
	for sev, want := range cases {
		if got := severityFraction(sev); got != want {
			t.Fatalf("%s: want=%f got=%f", sev, want, got)
		}
	}
}

func TestEnsureCategoryReusesEntry(t *testing.T) {
	m := map[types.RiskCategory]*categoryInputs{}
	a := ensureCategory(m, types.CategoryResidentHealth)
	b := ensureCategory(m, types.CategoryResidentHealth)
	if a != b {
		t.Fatalf("second lookup must return the same inputs bucket")
	}
	if len(m) != 1 {
		t.Fatalf("map size: want=1 got=%d", len(m))
	}
}

func TestOrderedCategoriesDeterministic(t *testing.T) {
	m := map[types.RiskCategory]*categoryInputs{
		types.CategoryResidentHealth:    {},
		types.CategoryCaregiverWorkload: {},
		types.CategoryMedicationSafety:  {},
	}
	first := orderedCategories(m)
	second := orderedCategories(m)
	if len(first) != 3 {
		t.Fatalf("category count: want=3 got=%d", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("ordering not deterministic at %d: %s vs %s", i, first[i], second[i])
		}
	}
	for i := 1; i < len(first); i++ {
		if !(first[i-1] < first[i]) {
			t.Fatalf("categories not sorted: %v", first)
		}
	}
}

func TestRiskTypeCatalogCoversEveryCategory(t *testing.T) {
	for _, category := range []types.RiskCategory{
		types.CategoryResidentHealth,
		types.CategoryMedicationSafety,
		types.CategoryCaregiverWorkload,
		types.CategoryCareOperations,
	} {
		if riskTypeByCategory[category] == "" {
			t.Fatalf("no risk type for category %s", category)
		}
		if len(interventionsByCategory[category]) == 0 {
			t.Fatalf("no interventions for category %s", category)
		}
	}
}

func TestRiskScoreIDDeterminism(t *testing.T) {
	tenant := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	subject := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	windowEnd := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	a := riskScoreID(tenant, subject, "vitals_instability", windowEnd, "abc123")
	b := riskScoreID(tenant, subject, "vitals_instability", windowEnd, "abc123")
	if a != b {
		t.Fatalf("same scoring inputs must derive the same row id")
	}
	c := riskScoreID(tenant, subject, "vitals_instability", windowEnd, "different")
	if a == c {
		t.Fatalf("changed factors must derive a different row id")
	}
}
