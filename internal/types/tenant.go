package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TenantConfig stores per-tenant pipeline overrides as sparse JSON merged
// over the global defaults at read time.
type TenantConfig struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"tenant_id"`
	Overrides datatypes.JSON `gorm:"type:jsonb" json:"overrides"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (TenantConfig) TableName() string { return "tenant_config" }

type PassStatus string

const (
	PassRunning   PassStatus = "RUNNING"
	PassCompleted PassStatus = "COMPLETED"
	PassFailed    PassStatus = "FAILED"
	PassCancelled PassStatus = "CANCELLED"
)

// PipelinePass is the bookkeeping row for one batch run of the pipeline.
type PipelinePass struct {
	ID                     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID               uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Status                 PassStatus `gorm:"type:varchar(16);not null" json:"status"`
	ObservationsAggregated int        `gorm:"not null;default:0" json:"observations_aggregated"`
	BaselinesUpdated       int        `gorm:"not null;default:0" json:"baselines_updated"`
	AnomaliesDetected      int        `gorm:"not null;default:0" json:"anomalies_detected"`
	RisksScored            int        `gorm:"not null;default:0" json:"risks_scored"`
	IssuesPrioritized      int        `gorm:"not null;default:0" json:"issues_prioritized"`
	EscalationsOpened      int        `gorm:"not null;default:0" json:"escalations_opened"`
	FailedSubjects         int        `gorm:"not null;default:0" json:"failed_subjects"`
	StartedAt              time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt             *time.Time `json:"finished_at,omitempty"`
}

func (PipelinePass) TableName() string { return "pipeline_pass" }
