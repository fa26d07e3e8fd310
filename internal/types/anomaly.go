package types

import (
	"time"

	"github.com/google/uuid"
)

type AnomalySeverity string

const (
	SeverityLow      AnomalySeverity = "LOW"
	SeverityMedium   AnomalySeverity = "MEDIUM"
	SeverityHigh     AnomalySeverity = "HIGH"
	SeverityCritical AnomalySeverity = "CRITICAL"
)

func (s AnomalySeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

type DeviationDirection string

const (
	DirectionAbove DeviationDirection = "ABOVE"
	DirectionBelow DeviationDirection = "BELOW"
)

// Polarity is the clinical reading of a deviation direction for a metric.
// It comes from the metric catalog, never from the sign of the z-score.
type Polarity string

const (
	PolarityAdverse   Polarity = "ADVERSE"
	PolarityFavorable Polarity = "FAVORABLE"
)

// Anomaly is created at most once per observation (unique observation_id)
// and never mutated.
type Anomaly struct {
	ID               uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID         uuid.UUID          `gorm:"type:uuid;not null;index" json:"tenant_id"`
	SubjectID        uuid.UUID          `gorm:"type:uuid;not null;index:idx_anomaly_subject,priority:1" json:"subject_id"`
	SubjectType      SubjectType        `gorm:"type:varchar(16);not null" json:"subject_type"`
	MetricType       string             `gorm:"type:varchar(64);not null;index:idx_anomaly_subject,priority:2" json:"metric_type"`
	ObservationID    uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex" json:"observation_id"`
	BaselineID       uuid.UUID          `gorm:"type:uuid;not null" json:"baseline_id"`
	ObservedValue    float64            `gorm:"not null" json:"observed_value"`
	BaselineMean     float64            `gorm:"not null" json:"baseline_mean"`
	ZScore           float64            `gorm:"not null" json:"z_score"`
	AbsDeviationPct  float64            `gorm:"not null;default:0" json:"abs_deviation_pct"`
	Direction        DeviationDirection `gorm:"type:varchar(8);not null" json:"direction"`
	Polarity         Polarity           `gorm:"type:varchar(12);not null" json:"polarity"`
	Severity         AnomalySeverity    `gorm:"type:varchar(12);not null" json:"severity"`
	SourceConfidence SourceConfidence   `gorm:"type:varchar(8);not null" json:"source_confidence"`
	DetectedAt       time.Time          `gorm:"not null;index" json:"detected_at"`
}

func (Anomaly) TableName() string { return "anomaly" }
