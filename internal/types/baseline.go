package types

import (
	"time"

	"github.com/google/uuid"
)

type TrendDirection string

const (
	TrendStable           TrendDirection = "STABLE"
	TrendIncreasing       TrendDirection = "INCREASING"
	TrendDecreasing       TrendDirection = "DECREASING"
	TrendInsufficientData TrendDirection = "INSUFFICIENT_DATA"
)

// Baseline is one versioned statistical window for a (subject, metric).
// A recompute writes a new row keyed by its window end; prior rows stay as
// history. The current baseline is simply the one with the latest window end.
type Baseline struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_baseline_window,unique,priority:1" json:"tenant_id"`
	SubjectID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_baseline_window,unique,priority:2" json:"subject_id"`
	SubjectType SubjectType    `gorm:"type:varchar(16);not null" json:"subject_type"`
	MetricType  string         `gorm:"type:varchar(64);not null;index:idx_baseline_window,unique,priority:3" json:"metric_type"`
	PeriodDays  int            `gorm:"not null;index:idx_baseline_window,unique,priority:4" json:"period_days"`
	WindowStart time.Time      `gorm:"not null" json:"window_start"`
	WindowEnd   time.Time      `gorm:"not null;index:idx_baseline_window,unique,priority:5" json:"window_end"`
	Mean        float64        `gorm:"not null" json:"mean"`
	StdDev      float64        `gorm:"not null" json:"std_dev"`
	MinValue    float64        `gorm:"not null" json:"min_value"`
	MaxValue    float64        `gorm:"not null" json:"max_value"`
	SampleCount int            `gorm:"not null" json:"sample_count"`
	Trend       TrendDirection `gorm:"type:varchar(24);not null" json:"trend"`
	ComputedAt  time.Time      `gorm:"not null" json:"computed_at"`
}

func (Baseline) TableName() string { return "baseline" }

// Sufficient reports whether the baseline may be used as an anomaly
// reference. Insufficient baselines are recorded but never compared against.
func (b *Baseline) Sufficient(minSamples int) bool {
	return b != nil && b.SampleCount >= minSamples && b.Trend != TrendInsufficientData
}
