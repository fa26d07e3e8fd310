package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type IssueStatus string

const (
	IssueNew          IssueStatus = "NEW"
	IssueAcknowledged IssueStatus = "ACKNOWLEDGED"
	IssueInProgress   IssueStatus = "IN_PROGRESS"
	IssueResolved     IssueStatus = "RESOLVED"
	IssueDismissed    IssueStatus = "DISMISSED"
)

func (s IssueStatus) Open() bool {
	return s == IssueNew || s == IssueAcknowledged || s == IssueInProgress
}

// PrioritizedIssue is the unit of the global worklist. One row per
// (tenant, subject, risk type) source key; repeated prioritization passes
// update the scores in place but the row identity and created_at are stable
// so ordering does not flicker across runs.
type PrioritizedIssue struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID         uuid.UUID      `gorm:"type:uuid;not null;index:idx_issue_worklist,priority:1" json:"tenant_id"`
	SubjectID        uuid.UUID      `gorm:"type:uuid;not null" json:"subject_id"`
	SubjectType      SubjectType    `gorm:"type:varchar(16);not null" json:"subject_type"`
	Category         RiskCategory   `gorm:"type:varchar(32);not null" json:"category"`
	RiskType         string         `gorm:"type:varchar(64);not null" json:"risk_type"`
	Title            string         `gorm:"type:varchar(256);not null" json:"title"`
	Description      string         `gorm:"type:text" json:"description"`
	Urgency          float64        `gorm:"not null" json:"urgency"`
	Severity         float64        `gorm:"not null" json:"severity"`
	Confidence       float64        `gorm:"not null" json:"confidence"`
	Priority         float64        `gorm:"not null;index:idx_issue_worklist,priority:2" json:"priority"`
	Status           IssueStatus    `gorm:"type:varchar(16);not null;default:'NEW'" json:"status"`
	RiskScoreIDs     datatypes.JSON `gorm:"type:jsonb" json:"risk_score_ids,omitempty"`
	SuggestedActions datatypes.JSON `gorm:"type:jsonb" json:"suggested_actions,omitempty"`
	FactorsHash      string         `gorm:"type:varchar(64);not null" json:"factors_hash"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (PrioritizedIssue) TableName() string { return "prioritized_issue" }

// IssueStatusEvent is the append-only audit trail of issue status changes.
// The issue row's status column is a convenience projection of the latest
// event, never the source of truth for history.
type IssueStatusEvent struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	IssueID    uuid.UUID   `gorm:"type:uuid;not null;index" json:"issue_id"`
	FromStatus IssueStatus `gorm:"type:varchar(16);not null" json:"from_status"`
	ToStatus   IssueStatus `gorm:"type:varchar(16);not null" json:"to_status"`
	ActorID    *uuid.UUID  `gorm:"type:uuid" json:"actor_id,omitempty"`
	CreatedAt  time.Time   `gorm:"not null;default:now()" json:"created_at"`
}

func (IssueStatusEvent) TableName() string { return "issue_status_event" }
