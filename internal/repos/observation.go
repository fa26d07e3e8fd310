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

// SubjectKey identifies one subject within a tenant for per-subject fan-out.
type SubjectKey struct {
	SubjectID   uuid.UUID
	SubjectType types.SubjectType
}

type ObservationRepo interface {
	InsertIdempotent(ctx context.Context, tx *gorm.DB, row *types.ObservationEvent) (bool, error)
	ListWindow(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, metricType string, from, to time.Time) ([]types.ObservationEvent, error)
	ListSubjectMetrics(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, from, to time.Time) ([]string, error)
	ListSubjects(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, from, to time.Time) ([]SubjectKey, error)
	CountWindow(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, from, to time.Time) (int64, error)
	DistinctTenants(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error)
}

type observationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewObservationRepo(db *gorm.DB, baseLog *logger.Logger) ObservationRepo {
	return &observationRepo{
		db:  db,
		log: baseLog.With("repo", "ObservationRepo"),
	}
}

// InsertIdempotent appends an observation, collapsing duplicate deliveries on
// the (tenant, subject, metric, recorded_at, source) unique key. Returns
// whether a new row was written.
func (r *observationRepo) InsertIdempotent(ctx context.Context, tx *gorm.DB, row *types.ObservationEvent) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"}, {Name: "subject_id"}, {Name: "metric_type"},
				{Name: "recorded_at"}, {Name: "source"},
			},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *observationRepo) ListWindow(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, metricType string, from, to time.Time) ([]types.ObservationEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []types.ObservationEvent
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND subject_id = ? AND metric_type = ? AND recorded_at >= ? AND recorded_at < ?",
			tenantID, subjectID, metricType, from, to).
		Order("recorded_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *observationRepo) ListSubjectMetrics(ctx context.Context, tx *gorm.DB, tenantID, subjectID uuid.UUID, from, to time.Time) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var metrics []string
	err := transaction.WithContext(ctx).
		Model(&types.ObservationEvent{}).
		Where("tenant_id = ? AND subject_id = ? AND recorded_at >= ? AND recorded_at < ?",
			tenantID, subjectID, from, to).
		Distinct("metric_type").
		Order("metric_type ASC").
		Pluck("metric_type", &metrics).Error
	if err != nil {
		return nil, err
	}
	return metrics, nil
}

// ListSubjects returns the subjects with at least one observation in the
// window, ordered by id so pass fan-out is deterministic.
func (r *observationRepo) ListSubjects(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, from, to time.Time) ([]SubjectKey, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []SubjectKey
	err := transaction.WithContext(ctx).
		Model(&types.ObservationEvent{}).
		Select("DISTINCT subject_id, subject_type").
		Where("tenant_id = ? AND recorded_at >= ? AND recorded_at < ?", tenantID, from, to).
		Order("subject_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *observationRepo) CountWindow(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, from, to time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.ObservationEvent{}).
		Where("tenant_id = ? AND recorded_at >= ? AND recorded_at < ?", tenantID, from, to).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *observationRepo) DistinctTenants(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []uuid.UUID
	err := transaction.WithContext(ctx).
		Model(&types.ObservationEvent{}).
		Distinct("tenant_id").
		Order("tenant_id ASC").
		Pluck("tenant_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
