package app

import (
	"gorm.io/gorm"

	"github.com/caresignal/caresignal-backend/internal/clients/redis"
	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/services"
)

type Services struct {
	TenantConfig services.TenantConfigService
	Aggregator   services.AggregatorService
	Baseline     services.BaselineService
	Anomaly      services.AnomalyService
	Risk         services.RiskService
	Prioritizer  services.PrioritizerService
	Escalation   services.EscalationService
	Narrator     services.NarratorService
	Intelligence services.IntelligenceService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, bus redis.PassBus) Services {
	log.Info("Wiring services...")

	tenantCfg := services.NewTenantConfigService(log, r.TenantConfig, cfg.Pipeline)
	resolve := tenantCfg.Resolve

	aggregator := services.NewAggregatorService(log, r.Observation, resolve)
	baseline := services.NewBaselineService(log, r.Observation, r.Baseline)
	anomaly := services.NewAnomalyService(log, r.Observation, r.Baseline, r.Anomaly)
	risk := services.NewRiskService(log, r.Observation, r.Anomaly, r.RiskScore, r.Escalation, r.Issue)
	prioritizer := services.NewPrioritizerService(log, r.RiskScore, r.Issue, r.Escalation)
	escalation := services.NewEscalationService(log, r.Escalation, r.Issue)
	narrator := services.NewNarratorService(log, r.Issue, r.RiskScore, r.Anomaly, r.Explanation)
	intelligence := services.NewIntelligenceService(
		log, db,
		r.Observation, r.PipelinePass,
		resolve,
		baseline, anomaly, risk, prioritizer, escalation,
		bus,
	)

	return Services{
		TenantConfig: tenantCfg,
		Aggregator:   aggregator,
		Baseline:     baseline,
		Anomaly:      anomaly,
		Risk:         risk,
		Prioritizer:  prioritizer,
		Escalation:   escalation,
		Narrator:     narrator,
		Intelligence: intelligence,
	}
}
