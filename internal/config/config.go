package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/caresignal/caresignal-backend/internal/types"
)

// Pipeline holds every tunable the intelligence pass reads. Global defaults
// come from Default(), optionally overridden by a YAML file at boot, then by
// a tenant's sparse JSON overrides at pass time. Nothing in the pipeline
// hard-codes a threshold outside this struct.
type Pipeline struct {
	BaselineWindowDays int     `yaml:"baseline_window_days" json:"baseline_window_days"`
	MinSampleCount     int     `yaml:"min_sample_count" json:"min_sample_count"`
	TrendDeadbandPct   float64 `yaml:"trend_deadband_pct" json:"trend_deadband_pct"`
	BucketMinutes      int     `yaml:"bucket_minutes" json:"bucket_minutes"`

	ZTierMedium   float64 `yaml:"z_tier_medium" json:"z_tier_medium"`
	ZTierHigh     float64 `yaml:"z_tier_high" json:"z_tier_high"`
	ZTierCritical float64 `yaml:"z_tier_critical" json:"z_tier_critical"`

	// Absolute-deviation fallback tiers (percent of baseline mean) used when
	// the baseline stddev is zero and a z-score is undefined.
	AbsTierMediumPct   float64 `yaml:"abs_tier_medium_pct" json:"abs_tier_medium_pct"`
	AbsTierHighPct     float64 `yaml:"abs_tier_high_pct" json:"abs_tier_high_pct"`
	AbsTierCriticalPct float64 `yaml:"abs_tier_critical_pct" json:"abs_tier_critical_pct"`

	RiskLevelMedium   float64 `yaml:"risk_level_medium" json:"risk_level_medium"`
	RiskLevelHigh     float64 `yaml:"risk_level_high" json:"risk_level_high"`
	RiskLevelCritical float64 `yaml:"risk_level_critical" json:"risk_level_critical"`

	// Issues are only raised for scores at or above this floor.
	MinScoreFloor float64 `yaml:"min_score_floor" json:"min_score_floor"`

	// Composite priority (0..1) at or above which an escalation is opened.
	EscalationPriorityThreshold float64 `yaml:"escalation_priority_threshold" json:"escalation_priority_threshold"`

	SLAHoursCritical float64 `yaml:"sla_hours_critical" json:"sla_hours_critical"`
	SLAHoursHigh     float64 `yaml:"sla_hours_high" json:"sla_hours_high"`
	SLAHoursMedium   float64 `yaml:"sla_hours_medium" json:"sla_hours_medium"`
	SLAHoursLow      float64 `yaml:"sla_hours_low" json:"sla_hours_low"`

	PassIntervalMinutes int `yaml:"pass_interval_minutes" json:"pass_interval_minutes"`

	WorkerConcurrency int `yaml:"worker_concurrency" json:"worker_concurrency"`

	// Upper bound on rows one pass pulls when ranking current scores and
	// sweeping the open worklist for escalations.
	PassScanLimit int `yaml:"pass_scan_limit" json:"pass_scan_limit"`
}

func Default() Pipeline {
	return Pipeline{
		BaselineWindowDays:          7,
		MinSampleCount:              5,
		TrendDeadbandPct:            5,
		BucketMinutes:               60,
		ZTierMedium:                 2,
		ZTierHigh:                   3,
		ZTierCritical:               4,
		AbsTierMediumPct:            25,
		AbsTierHighPct:              50,
		AbsTierCriticalPct:          100,
		RiskLevelMedium:             40,
		RiskLevelHigh:               60,
		RiskLevelCritical:           80,
		MinScoreFloor:               20,
		EscalationPriorityThreshold: 0.35,
		SLAHoursCritical:            0.25,
		SLAHoursHigh:                4,
		SLAHoursMedium:              24,
		SLAHoursLow:                 72,
		PassIntervalMinutes:         60,
		WorkerConcurrency:           4,
		PassScanLimit:               10000,
	}
}

// LoadFile overlays values from a YAML file onto base. A missing file is not
// an error; a malformed one is.
func LoadFile(base Pipeline, path string) (Pipeline, error) {
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, fmt.Errorf("read pipeline config %s: %w", path, err)
	}
	out := base
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return base, fmt.Errorf("parse pipeline config %s: %w", path, err)
	}
	return out, nil
}

// ApplyOverrides overlays a tenant's sparse JSON overrides. Unknown keys are
// rejected so a typo in a tenant override surfaces instead of silently
// falling back to the default.
func ApplyOverrides(base Pipeline, overrides []byte) (Pipeline, error) {
	if len(overrides) == 0 {
		return base, nil
	}
	out := base
	dec := json.NewDecoder(bytes.NewReader(overrides))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return base, fmt.Errorf("parse tenant overrides: %w", err)
	}
	return out, nil
}

func (p Pipeline) RiskLevelFor(score float64) types.RiskLevel {
	switch {
	case score >= p.RiskLevelCritical:
		return types.RiskLevelCritical
	case score >= p.RiskLevelHigh:
		return types.RiskLevelHigh
	case score >= p.RiskLevelMedium:
		return types.RiskLevelMedium
	default:
		return types.RiskLevelLow
	}
}

func (p Pipeline) SLAHoursFor(level types.RiskLevel) float64 {
	switch level {
	case types.RiskLevelCritical:
		return p.SLAHoursCritical
	case types.RiskLevelHigh:
		return p.SLAHoursHigh
	case types.RiskLevelMedium:
		return p.SLAHoursMedium
	default:
		return p.SLAHoursLow
	}
}
