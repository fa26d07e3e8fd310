package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/caresignal/caresignal-backend/internal/config"
	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/repos"
	"github.com/caresignal/caresignal-backend/internal/types"
)

// TenantConfigResolver yields the effective pipeline configuration for a
// tenant: global defaults overlaid with the tenant's stored overrides.
type TenantConfigResolver func(ctx context.Context, tenantID uuid.UUID) (config.Pipeline, error)

type TenantConfigService interface {
	Resolve(ctx context.Context, tenantID uuid.UUID) (config.Pipeline, error)
	SetOverrides(ctx context.Context, tenantID uuid.UUID, overrides []byte) (config.Pipeline, error)
}

type tenantConfigService struct {
	log      *logger.Logger
	repo     repos.TenantConfigRepo
	defaults config.Pipeline
}

func NewTenantConfigService(baseLog *logger.Logger, repo repos.TenantConfigRepo, defaults config.Pipeline) TenantConfigService {
	return &tenantConfigService{
		log:      baseLog.With("service", "TenantConfigService"),
		repo:     repo,
		defaults: defaults,
	}
}

// SetOverrides validates the sparse override document against the defaults
// before persisting it, so a tenant can never store a config that fails to
// merge at pass time.
func (s *tenantConfigService) SetOverrides(ctx context.Context, tenantID uuid.UUID, overrides []byte) (config.Pipeline, error) {
	merged, err := config.ApplyOverrides(s.defaults, overrides)
	if err != nil {
		return s.defaults, err
	}
	row := &types.TenantConfig{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Overrides: datatypes.JSON(overrides),
	}
	if err := s.repo.Upsert(ctx, nil, row); err != nil {
		return s.defaults, fmt.Errorf("store tenant overrides: %w", err)
	}
	s.log.Info("Tenant overrides updated", "tenant_id", tenantID)
	return merged, nil
}

func (s *tenantConfigService) Resolve(ctx context.Context, tenantID uuid.UUID) (config.Pipeline, error) {
	row, err := s.repo.GetByTenant(ctx, nil, tenantID)
	if err != nil {
		return s.defaults, fmt.Errorf("load tenant config: %w", err)
	}
	if row == nil || len(row.Overrides) == 0 {
		return s.defaults, nil
	}
	merged, err := config.ApplyOverrides(s.defaults, row.Overrides)
	if err != nil {
		// A broken override must not halt the pipeline for the tenant.
		s.log.Warn("Invalid tenant overrides, falling back to defaults",
			"tenant_id", tenantID, "error", err)
		return s.defaults, nil
	}
	return merged, nil
}
