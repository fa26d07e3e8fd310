package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/caresignal/caresignal-backend/internal/apierr"
	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/types"
)

type IssueRepo interface {
	UpsertScores(ctx context.Context, tx *gorm.DB, row *types.PrioritizedIssue) error
	Get(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PrioritizedIssue, error)
	ListWorklist(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, statuses []types.IssueStatus, limit int) ([]types.PrioritizedIssue, error)
	Transition(ctx context.Context, tx *gorm.DB, id uuid.UUID, to types.IssueStatus, actorID *uuid.UUID) (*types.PrioritizedIssue, error)
	StatusHistory(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) ([]types.IssueStatusEvent, error)
}

type issueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIssueRepo(db *gorm.DB, baseLog *logger.Logger) IssueRepo {
	return &issueRepo{
		db:  db,
		log: baseLog.With("repo", "IssueRepo"),
	}
}

// UpsertScores refreshes the ranked fields of an issue while preserving its
// identity, status, and created_at. This is what keeps worklist ordering
// stable across recomputation runs.
func (r *issueRepo) UpsertScores(ctx context.Context, tx *gorm.DB, row *types.PrioritizedIssue) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "description", "urgency", "severity", "confidence",
				"priority", "risk_score_ids", "suggested_actions", "factors_hash",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *issueRepo) Get(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PrioritizedIssue, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.PrioritizedIssue
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

// ListWorklist is the single global ordering: priority desc, then confidence
// desc, then oldest first. No category partitioning before ranking.
func (r *issueRepo) ListWorklist(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, statuses []types.IssueStatus, limit int) ([]types.PrioritizedIssue, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	q := transaction.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var rows []types.PrioritizedIssue
	err := q.Order("priority DESC, confidence DESC, created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Transition moves an issue's status and appends the audit event in one
// transaction.
func (r *issueRepo) Transition(ctx context.Context, tx *gorm.DB, id uuid.UUID, to types.IssueStatus, actorID *uuid.UUID) (*types.PrioritizedIssue, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out *types.PrioritizedIssue
	err := transaction.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		var row types.PrioritizedIssue
		if err := txn.Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
			return err
		}
		if row.ID == uuid.Nil {
			return apierr.ErrNotFound
		}
		event := &types.IssueStatusEvent{
			ID:         uuid.New(),
			IssueID:    row.ID,
			FromStatus: row.Status,
			ToStatus:   to,
			ActorID:    actorID,
			CreatedAt:  time.Now().UTC(),
		}
		if err := txn.Create(event).Error; err != nil {
			return err
		}
		if err := txn.Model(&types.PrioritizedIssue{}).
			Where("id = ?", row.ID).
			Updates(map[string]interface{}{"status": to, "updated_at": time.Now().UTC()}).Error; err != nil {
			return err
		}
		row.Status = to
		out = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *issueRepo) StatusHistory(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) ([]types.IssueStatusEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []types.IssueStatusEvent
	err := transaction.WithContext(ctx).
		Where("issue_id = ?", issueID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
