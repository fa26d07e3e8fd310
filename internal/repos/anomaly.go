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

type AnomalyRepo interface {
	InsertIdempotent(ctx context.Context, tx *gorm.DB, row *types.Anomaly) (bool, error)
	ListWindow(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, from, to time.Time) ([]types.Anomaly, error)
	ListByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]types.Anomaly, error)
}

type anomalyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnomalyRepo(db *gorm.DB, baseLog *logger.Logger) AnomalyRepo {
	return &anomalyRepo{
		db:  db,
		log: baseLog.With("repo", "AnomalyRepo"),
	}
}

// InsertIdempotent writes an anomaly unless the observation was already
// flagged; reprocessing a window never re-flags.
func (r *anomalyRepo) InsertIdempotent(ctx context.Context, tx *gorm.DB, row *types.Anomaly) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "observation_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *anomalyRepo) ListWindow(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, from, to time.Time) ([]types.Anomaly, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []types.Anomaly
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND subject_id = ? AND detected_at >= ? AND detected_at < ?",
			tenantID, subjectID, from, to).
		Order("detected_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *anomalyRepo) ListByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]types.Anomaly, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []types.Anomaly
	err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Order("detected_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
