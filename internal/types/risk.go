package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RiskCategory string

const (
	CategoryResidentHealth    RiskCategory = "RESIDENT_HEALTH"
	CategoryMedicationSafety  RiskCategory = "MEDICATION_SAFETY"
	CategoryCaregiverWorkload RiskCategory = "CAREGIVER_WORKLOAD"
	CategoryCareOperations    RiskCategory = "CARE_OPERATIONS"
)

type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// ContributingFactor is one weighted input into a risk score, ordered by
// weight in the stored factor list. Serialized into the factors JSON column.
type ContributingFactor struct {
	Factor      string  `json:"factor"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// RiskScore rows are append-only history; the current score for a
// (subject, risk_type) is the row with the latest window end. The ID is
// derived deterministically from the scoring inputs so rescoring an
// unchanged snapshot lands on the identical row.
type RiskScore struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_risk_current,priority:1" json:"tenant_id"`
	SubjectID     uuid.UUID        `gorm:"type:uuid;not null;index:idx_risk_current,priority:2" json:"subject_id"`
	SubjectType   SubjectType      `gorm:"type:varchar(16);not null" json:"subject_type"`
	Category      RiskCategory     `gorm:"type:varchar(32);not null;index" json:"category"`
	RiskType      string           `gorm:"type:varchar(64);not null;index:idx_risk_current,priority:3" json:"risk_type"`
	Score         float64          `gorm:"not null" json:"score"`
	Confidence    float64          `gorm:"not null" json:"confidence"`
	Level         RiskLevel        `gorm:"type:varchar(12);not null" json:"level"`
	Factors       datatypes.JSON   `gorm:"type:jsonb" json:"factors"`
	Interventions datatypes.JSON   `gorm:"type:jsonb" json:"interventions,omitempty"`
	AnomalyIDs    datatypes.JSON   `gorm:"type:jsonb" json:"anomaly_ids,omitempty"`
	Trend         TrendDirection   `gorm:"type:varchar(24);not null" json:"trend"`
	WindowStart   time.Time        `gorm:"not null" json:"window_start"`
	WindowEnd     time.Time        `gorm:"not null;index:idx_risk_current,priority:4" json:"window_end"`
	ComputedAt    time.Time        `gorm:"not null" json:"computed_at"`
}

func (RiskScore) TableName() string { return "risk_score" }
