package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/types"
)

type ExplanationRepo interface {
	InsertVersion(ctx context.Context, tx *gorm.DB, row *types.Explanation) (bool, error)
	GetLatest(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) (*types.Explanation, error)
	GetByHash(ctx context.Context, tx *gorm.DB, issueID uuid.UUID, factorsHash string) (*types.Explanation, error)
}

type explanationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExplanationRepo(db *gorm.DB, baseLog *logger.Logger) ExplanationRepo {
	return &explanationRepo{
		db:  db,
		log: baseLog.With("repo", "ExplanationRepo"),
	}
}

// InsertVersion writes one explanation version per (issue, factors hash);
// regenerating an unchanged chain is a no-op and old versions stay put.
func (r *explanationRepo) InsertVersion(ctx context.Context, tx *gorm.DB, row *types.Explanation) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "issue_id"}, {Name: "factors_hash"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *explanationRepo) GetLatest(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) (*types.Explanation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Explanation
	err := transaction.WithContext(ctx).
		Where("issue_id = ?", issueID).
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

func (r *explanationRepo) GetByHash(ctx context.Context, tx *gorm.DB, issueID uuid.UUID, factorsHash string) (*types.Explanation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Explanation
	err := transaction.WithContext(ctx).
		Where("issue_id = ? AND factors_hash = ?", issueID, factorsHash).
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
