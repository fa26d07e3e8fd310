package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/types"
)

type RiskScoreRepo interface {
	InsertIdempotent(ctx context.Context, tx *gorm.DB, row *types.RiskScore) (bool, error)
	ListCurrent(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, category types.RiskCategory, limit int) ([]types.RiskScore, error)
	ListByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]types.RiskScore, error)
	History(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, riskType string, limit int) ([]types.RiskScore, error)
}

type riskScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRiskScoreRepo(db *gorm.DB, baseLog *logger.Logger) RiskScoreRepo {
	return &riskScoreRepo{
		db:  db,
		log: baseLog.With("repo", "RiskScoreRepo"),
	}
}

// InsertIdempotent appends one score row. The id is derived from the scoring
// inputs upstream, so rescoring an unchanged snapshot conflicts on the
// primary key and writes nothing.
func (r *riskScoreRepo) InsertIdempotent(ctx context.Context, tx *gorm.DB, row *types.RiskScore) (bool, error) {
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

// ListCurrent returns the latest score per (subject, risk_type), ordered by
// score descending. History rows for older windows are excluded by the
// correlated subquery.
func (r *riskScoreRepo) ListCurrent(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, category types.RiskCategory, limit int) ([]types.RiskScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	q := transaction.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where(`window_end = (
			SELECT MAX(rs2.window_end) FROM risk_score rs2
			WHERE rs2.tenant_id = risk_score.tenant_id
			  AND rs2.subject_id = risk_score.subject_id
			  AND rs2.risk_type = risk_score.risk_type
		)`)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var rows []types.RiskScore
	err := q.Order("score DESC, confidence DESC, subject_id ASC, risk_type ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *riskScoreRepo) ListByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]types.RiskScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []types.RiskScore
	err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Order("window_end ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *riskScoreRepo) History(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, riskType string, limit int) ([]types.RiskScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 20
	}
	var rows []types.RiskScore
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND subject_id = ? AND risk_type = ?", tenantID, subjectID, riskType).
		Order("window_end DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
