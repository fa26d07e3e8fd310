package types

import (
	"time"

	"github.com/google/uuid"
)

type EscalationStatus string

const (
	EscalationPending      EscalationStatus = "PENDING"
	EscalationAcknowledged EscalationStatus = "ACKNOWLEDGED"
	EscalationInProgress   EscalationStatus = "IN_PROGRESS"
	EscalationResolved     EscalationStatus = "RESOLVED"
)

func (s EscalationStatus) rank() int {
	switch s {
	case EscalationPending:
		return 0
	case EscalationAcknowledged:
		return 1
	case EscalationInProgress:
		return 2
	case EscalationResolved:
		return 3
	default:
		return -1
	}
}

// CanTransitionTo enforces the forward-only state machine. Skipping ahead
// (PENDING → IN_PROGRESS) is allowed; moving backward or repeating is not.
func (s EscalationStatus) CanTransitionTo(next EscalationStatus) bool {
	from, to := s.rank(), next.rank()
	if from < 0 || to < 0 {
		return false
	}
	return to > from
}

func (s EscalationStatus) Open() bool { return s != EscalationResolved }

// Escalation binds a prioritized issue to an SLA clock. The version column
// guards human transitions with optimistic concurrency; the breach flag is
// derived at read time, never stored.
type Escalation struct {
	ID                 uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID           uuid.UUID        `gorm:"type:uuid;not null;index" json:"tenant_id"`
	IssueID            uuid.UUID        `gorm:"type:uuid;not null;index" json:"issue_id"`
	Priority           RiskLevel        `gorm:"type:varchar(12);not null" json:"priority"`
	SLAHours           float64          `gorm:"not null" json:"sla_hours"`
	RequiredResponseBy time.Time        `gorm:"not null;index" json:"required_response_by"`
	Status             EscalationStatus `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"`
	AssignedTo         *uuid.UUID       `gorm:"type:uuid" json:"assigned_to,omitempty"`
	AcknowledgedBy     *uuid.UUID       `gorm:"type:uuid" json:"acknowledged_by,omitempty"`
	AcknowledgedAt     *time.Time       `json:"acknowledged_at,omitempty"`
	ResolvedAt         *time.Time       `json:"resolved_at,omitempty"`
	Version            int              `gorm:"not null;default:1" json:"version"`
	CreatedAt          time.Time        `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time        `gorm:"not null;default:now()" json:"updated_at"`
}

func (Escalation) TableName() string { return "escalation" }

func (e *Escalation) Breached(now time.Time) bool {
	return e != nil && e.Status.Open() && now.After(e.RequiredResponseBy)
}
