package types

import (
	"time"

	"github.com/google/uuid"
)

type SubjectType string

const (
	SubjectResident  SubjectType = "RESIDENT"
	SubjectCaregiver SubjectType = "CAREGIVER"
)

type SourceConfidence string

const (
	SourceConfidenceHigh   SourceConfidence = "HIGH"
	SourceConfidenceMedium SourceConfidence = "MEDIUM"
	SourceConfidenceLow    SourceConfidence = "LOW"
)

// Value maps the ingestion-time confidence label to the multiplier used in
// downstream confidence arithmetic.
func (c SourceConfidence) Value() float64 {
	switch c {
	case SourceConfidenceHigh:
		return 1.0
	case SourceConfidenceMedium:
		return 0.75
	case SourceConfidenceLow:
		return 0.5
	default:
		return 0.5
	}
}

// ObservationEvent is the append-only record every downstream inference
// traces back to. Rows are never updated after insert; duplicate deliveries
// collapse on the (tenant, subject, metric, recorded_at, source) key.
type ObservationEvent struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID         uuid.UUID        `gorm:"type:uuid;not null;index:idx_observation_dedupe,unique,priority:1;index:idx_observation_lookup,priority:1" json:"tenant_id"`
	SubjectID        uuid.UUID        `gorm:"type:uuid;not null;index:idx_observation_dedupe,unique,priority:2;index:idx_observation_lookup,priority:2" json:"subject_id"`
	SubjectType      SubjectType      `gorm:"type:varchar(16);not null" json:"subject_type"`
	MetricType       string           `gorm:"type:varchar(64);not null;index:idx_observation_dedupe,unique,priority:3;index:idx_observation_lookup,priority:3" json:"metric_type"`
	Value            float64          `gorm:"not null" json:"value"`
	Unit             string           `gorm:"type:varchar(32)" json:"unit"`
	RecordedAt       time.Time        `gorm:"not null;index:idx_observation_dedupe,unique,priority:4;index:idx_observation_lookup,priority:4" json:"recorded_at"`
	Source           string           `gorm:"type:varchar(64);not null;index:idx_observation_dedupe,unique,priority:5" json:"source"`
	SourceConfidence SourceConfidence `gorm:"type:varchar(8);not null" json:"source_confidence"`
	BucketStart      time.Time        `gorm:"not null;index" json:"bucket_start"`
	IngestedAt       time.Time        `gorm:"not null;default:now()" json:"ingested_at"`
}

func (ObservationEvent) TableName() string { return "observation_event" }
