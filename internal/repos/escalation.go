package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/types"
)

// EscalationUpdate carries the mutable fields of an optimistic transition.
type EscalationUpdate struct {
	Status         types.EscalationStatus
	AssignedTo     *uuid.UUID
	AcknowledgedBy *uuid.UUID
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
}

type EscalationRepo interface {
	Get(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Escalation, error)
	FindOpenByIssue(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) (*types.Escalation, error)
	CreateIdempotent(ctx context.Context, tx *gorm.DB, row *types.Escalation) (bool, error)
	TransitionOptimistic(ctx context.Context, tx *gorm.DB, id uuid.UUID, expectedVersion int, update EscalationUpdate) (bool, error)
	Assign(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (bool, error)
	ListOpen(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, limit int) ([]types.Escalation, error)
}

type escalationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEscalationRepo(db *gorm.DB, baseLog *logger.Logger) EscalationRepo {
	return &escalationRepo{
		db:  db,
		log: baseLog.With("repo", "EscalationRepo"),
	}
}

func (r *escalationRepo) Get(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Escalation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Escalation
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *escalationRepo) FindOpenByIssue(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) (*types.Escalation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Escalation
	err := transaction.WithContext(ctx).
		Where("issue_id = ? AND status <> ?", issueID, types.EscalationResolved).
		Order("created_at DESC").
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

// CreateIdempotent opens an escalation unless one with the same derived id
// already exists. The id is derived from the issue, so re-running
// prioritization cannot open a duplicate.
func (r *escalationRepo) CreateIdempotent(ctx context.Context, tx *gorm.DB, row *types.Escalation) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TransitionOptimistic applies a state change only if the stored version
// still matches what the caller read. A false return with no error means the
// row moved underneath the caller.
func (r *escalationRepo) TransitionOptimistic(ctx context.Context, tx *gorm.DB, id uuid.UUID, expectedVersion int, update EscalationUpdate) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	fields := map[string]interface{}{
		"status":     update.Status,
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now().UTC(),
	}
	if update.AssignedTo != nil {
		fields["assigned_to"] = *update.AssignedTo
	}
	if update.AcknowledgedBy != nil {
		fields["acknowledged_by"] = *update.AcknowledgedBy
	}
	if update.AcknowledgedAt != nil {
		fields["acknowledged_at"] = *update.AcknowledgedAt
	}
	if update.ResolvedAt != nil {
		fields["resolved_at"] = *update.ResolvedAt
	}
	res := transaction.WithContext(ctx).
		Model(&types.Escalation{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Assign sets the assignee without touching the state machine; assignment is
// allowed in any open state.
func (r *escalationRepo) Assign(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Escalation{}).
		Where("id = ? AND status <> ?", id, types.EscalationResolved).
		Updates(map[string]interface{}{
			"assigned_to": userID,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *escalationRepo) ListOpen(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, limit int) ([]types.Escalation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var rows []types.Escalation
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND status <> ?", tenantID, types.EscalationResolved).
		Order("required_response_by ASC, created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
