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

type BaselineRepo interface {
	InsertVersion(ctx context.Context, tx *gorm.DB, row *types.Baseline) (bool, error)
	GetCurrent(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, metricType string, periodDays int) (*types.Baseline, error)
	GetCurrentAsOf(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, metricType string, periodDays int, asOf time.Time) (*types.Baseline, error)
	History(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, metricType string, periodDays int, limit int) ([]types.Baseline, error)
}

type baselineRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBaselineRepo(db *gorm.DB, baseLog *logger.Logger) BaselineRepo {
	return &baselineRepo{
		db:  db,
		log: baseLog.With("repo", "BaselineRepo"),
	}
}

// InsertVersion writes one baseline version. Recomputing the same window is
// a no-op thanks to the (tenant, subject, metric, period, window_end) unique
// key; prior versions are never touched.
func (r *baselineRepo) InsertVersion(ctx context.Context, tx *gorm.DB, row *types.Baseline) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"}, {Name: "subject_id"}, {Name: "metric_type"},
				{Name: "period_days"}, {Name: "window_end"},
			},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *baselineRepo) GetCurrent(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, metricType string, periodDays int) (*types.Baseline, error) {
	return r.GetCurrentAsOf(ctx, tx, tenantID, subjectID, metricType, periodDays, time.Time{})
}

func (r *baselineRepo) GetCurrentAsOf(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, metricType string, periodDays int, asOf time.Time) (*types.Baseline, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Where("tenant_id = ? AND subject_id = ? AND metric_type = ? AND period_days = ?",
			tenantID, subjectID, metricType, periodDays)
	if !asOf.IsZero() {
		q = q.Where("window_end <= ?", asOf)
	}
	var row types.Baseline
	err := q.Order("window_end DESC").Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *baselineRepo) History(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, metricType string, periodDays int, limit int) ([]types.Baseline, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var rows []types.Baseline
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND subject_id = ? AND metric_type = ? AND period_days = ?",
			tenantID, subjectID, metricType, periodDays).
		Order("window_end DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
