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

type TenantConfigRepo interface {
	GetByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (*types.TenantConfig, error)
	Upsert(ctx context.Context, tx *gorm.DB, row *types.TenantConfig) error
}

type tenantConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTenantConfigRepo(db *gorm.DB, baseLog *logger.Logger) TenantConfigRepo {
	return &tenantConfigRepo{
		db:  db,
		log: baseLog.With("repo", "TenantConfigRepo"),
	}
}

func (r *tenantConfigRepo) GetByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (*types.TenantConfig, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.TenantConfig
	err := transaction.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
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

func (r *tenantConfigRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.TenantConfig) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	row.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"overrides", "updated_at"}),
		}).
		Create(row).Error
}

type PipelinePassRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.PipelinePass) error
	Finish(ctx context.Context, tx *gorm.DB, row *types.PipelinePass) error
	ListRecent(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, limit int) ([]types.PipelinePass, error)
}

type pipelinePassRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPipelinePassRepo(db *gorm.DB, baseLog *logger.Logger) PipelinePassRepo {
	return &pipelinePassRepo{
		db:  db,
		log: baseLog.With("repo", "PipelinePassRepo"),
	}
}

func (r *pipelinePassRepo) Create(ctx context.Context, tx *gorm.DB, row *types.PipelinePass) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *pipelinePassRepo) Finish(ctx context.Context, tx *gorm.DB, row *types.PipelinePass) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	row.FinishedAt = &now
	return transaction.WithContext(ctx).
		Model(&types.PipelinePass{}).
		Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"status":                  row.Status,
			"observations_aggregated": row.ObservationsAggregated,
			"baselines_updated":       row.BaselinesUpdated,
			"anomalies_detected":      row.AnomaliesDetected,
			"risks_scored":            row.RisksScored,
			"issues_prioritized":      row.IssuesPrioritized,
			"escalations_opened":      row.EscalationsOpened,
			"failed_subjects":         row.FailedSubjects,
			"finished_at":             now,
		}).Error
}

func (r *pipelinePassRepo) ListRecent(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, limit int) ([]types.PipelinePass, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 20
	}
	var rows []types.PipelinePass
	err := transaction.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
