package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/caresignal/caresignal-backend/internal/types"
)

func TestApplyOverridesSparse(t *testing.T) {
	base := Default()
	out, err := ApplyOverrides(base, []byte(`{"min_sample_count":3,"sla_hours_high":2}`))
	if err != nil {
		t.Fatalf("apply overrides: %v", err)
	}
	if out.MinSampleCount != 3 {
		t.Fatalf("min_sample_count: want=3 got=%d", out.MinSampleCount)
	}
	if out.SLAHoursHigh != 2 {
		t.Fatalf("sla_hours_high: want=2 got=%f", out.SLAHoursHigh)
	}
	// Untouched keys keep their defaults.
	if out.BaselineWindowDays != base.BaselineWindowDays {
		t.Fatalf("baseline_window_days changed unexpectedly")
	}
}

func TestApplyOverridesRejectsUnknownKeys(t *testing.T) {
	if _, err := ApplyOverrides(Default(), []byte(`{"min_sampel_count":3}`)); err == nil {
		t.Fatalf("typo'd override key must be rejected")
	}
}

func TestApplyOverridesEmpty(t *testing.T) {
	out, err := ApplyOverrides(Default(), nil)
	if err != nil {
		t.Fatalf("empty overrides: %v", err)
	}
	if out != Default() {
		t.Fatalf("empty overrides must return the base unchanged")
	}
}

func TestPassScanLimitOverride(t *testing.T) {
	base := Default()
	if base.PassScanLimit <= 0 {
		t.Fatalf("default pass_scan_limit must be positive, got %d", base.PassScanLimit)
	}
	out, err := ApplyOverrides(base, []byte(`{"pass_scan_limit":250}`))
	if err != nil {
		t.Fatalf("apply overrides: %v", err)
	}
	if out.PassScanLimit != 250 {
		t.Fatalf("pass_scan_limit: want=250 got=%d", out.PassScanLimit)
	}
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	out, err := LoadFile(Default(), "/nonexistent/pipeline.yaml")
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if out != Default() {
		t.Fatalf("missing file must return the base unchanged")
	}
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	raw := []byte("baseline_window_days: 14\nz_tier_critical: 5\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	out, err := LoadFile(Default(), path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if out.BaselineWindowDays != 14 {
		t.Fatalf("baseline_window_days: want=14 got=%d", out.BaselineWindowDays)
	}
	if out.ZTierCritical != 5 {
		t.Fatalf("z_tier_critical: want=5 got=%f", out.ZTierCritical)
	}
	if out.MinSampleCount != Default().MinSampleCount {
		t.Fatalf("min_sample_count changed unexpectedly")
	}
}

func TestRiskLevelFor(t *testing.T) {
	cfg := Default()
	cases := []struct {
		score float64
		want  types.RiskLevel
	}{
		{10, types.RiskLevelLow},
		{40, types.RiskLevelMedium},
		{59.9, types.RiskLevelMedium},
		{60, types.RiskLevelHigh},
		{80, types.RiskLevelCritical},
		{100, types.RiskLevelCritical},
	}
	for _, tc := range cases {
		if got := cfg.RiskLevelFor(tc.score); got != tc.want {
			t.Fatalf("score %.1f: want=%q got=%q", tc.score, tc.want, got)
		}
	}
}

func TestSLAHoursFor(t *testing.T) {
	cfg := Default()
	if got := cfg.SLAHoursFor(types.RiskLevelCritical); got != 0.25 {
		t.Fatalf("critical SLA: want=0.25 got=%f", got)
	}
	if got := cfg.SLAHoursFor(types.RiskLevelLow); got != 72 {
		t.Fatalf("low SLA: want=72 got=%f", got)
	}
}
