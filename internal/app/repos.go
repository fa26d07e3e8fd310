package app

import (
	"gorm.io/gorm"

	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/repos"
)

type Repos struct {
	Observation  repos.ObservationRepo
	Baseline     repos.BaselineRepo
	Anomaly      repos.AnomalyRepo
	RiskScore    repos.RiskScoreRepo
	Issue        repos.IssueRepo
	Explanation  repos.ExplanationRepo
	Escalation   repos.EscalationRepo
	TenantConfig repos.TenantConfigRepo
	PipelinePass repos.PipelinePassRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Observation:  repos.NewObservationRepo(db, log),
		Baseline:     repos.NewBaselineRepo(db, log),
		Anomaly:      repos.NewAnomalyRepo(db, log),
		RiskScore:    repos.NewRiskScoreRepo(db, log),
		Issue:        repos.NewIssueRepo(db, log),
		Explanation:  repos.NewExplanationRepo(db, log),
		Escalation:   repos.NewEscalationRepo(db, log),
		TenantConfig: repos.NewTenantConfigRepo(db, log),
		PipelinePass: repos.NewPipelinePassRepo(db, log),
	}
}
