package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EvidenceKind is the closed set of evidence reference variants. The
// narrator switches exhaustively over these; adding a kind is a compile-time
// visible change, not a new free-form payload shape.
type EvidenceKind string

const (
	EvidenceObservation EvidenceKind = "observation"
	EvidenceAnomaly     EvidenceKind = "anomaly"
	EvidenceRuleTrigger EvidenceKind = "rule_trigger"
)

// EvidenceRef is a typed pointer into the stores; it never embeds raw
// observation payloads beyond the metric name needed to read the chain.
type EvidenceRef struct {
	Kind       EvidenceKind `json:"kind"`
	RefID      uuid.UUID    `json:"ref_id,omitempty"`
	RuleID     string       `json:"rule_id,omitempty"`
	MetricType string       `json:"metric_type,omitempty"`
}

type ReasoningStep struct {
	Order      int     `json:"order"`
	Statement  string  `json:"statement"`
	Confidence float64 `json:"confidence"`
}

// Explanation versions are append-only. A new version is written whenever
// the issue's factors hash moves; old versions remain for audit.
type Explanation struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	IssueID        uuid.UUID      `gorm:"type:uuid;not null;index:idx_explanation_issue,unique,priority:1" json:"issue_id"`
	FactorsHash    string         `gorm:"type:varchar(64);not null;index:idx_explanation_issue,unique,priority:2" json:"factors_hash"`
	Summary        string         `gorm:"type:text;not null" json:"summary"`
	Steps          datatypes.JSON `gorm:"type:jsonb;not null" json:"steps"`
	Evidence       datatypes.JSON `gorm:"type:jsonb;not null" json:"evidence"`
	ConfidenceNote string         `gorm:"type:text;not null" json:"confidence_note"`
	Limitations    datatypes.JSON `gorm:"type:jsonb" json:"limitations,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (Explanation) TableName() string { return "explanation" }
