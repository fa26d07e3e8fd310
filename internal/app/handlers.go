package app

import (
	"github.com/caresignal/caresignal-backend/internal/handlers"
	"github.com/caresignal/caresignal-backend/internal/logger"
)

type Handlers struct {
	Observation  *handlers.ObservationHandler
	Intelligence *handlers.IntelligenceHandler
	Baseline     *handlers.BaselineHandler
	Issue        *handlers.IssueHandler
	RiskScore    *handlers.RiskScoreHandler
	Escalation   *handlers.EscalationHandler
	Tenant       *handlers.TenantHandler
}

func wireHandlers(log *logger.Logger, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Observation:  handlers.NewObservationHandler(log, s.Aggregator),
		Intelligence: handlers.NewIntelligenceHandler(log, s.Intelligence),
		Baseline:     handlers.NewBaselineHandler(log, s.Baseline, s.TenantConfig),
		Issue:        handlers.NewIssueHandler(log, s.Prioritizer, s.Narrator),
		RiskScore:    handlers.NewRiskScoreHandler(log, s.Risk),
		Escalation:   handlers.NewEscalationHandler(log, s.Escalation),
		Tenant:       handlers.NewTenantHandler(log, s.TenantConfig),
	}
}
