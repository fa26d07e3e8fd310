package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/caresignal/caresignal-backend/internal/handlers"
)

type RouterConfig struct {
	ServiceName         string
	ObservationHandler  *handlers.ObservationHandler
	IntelligenceHandler *handlers.IntelligenceHandler
	BaselineHandler     *handlers.BaselineHandler
	IssueHandler        *handlers.IssueHandler
	RiskScoreHandler    *handlers.RiskScoreHandler
	EscalationHandler   *handlers.EscalationHandler
	TenantHandler       *handlers.TenantHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "caresignal"
	}
	router.Use(otelgin.Middleware(serviceName))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Ingest
		api.POST("/observations", cfg.ObservationHandler.Submit)

		// Pipeline
		api.POST("/intelligence/run", cfg.IntelligenceHandler.RunPass)
		api.GET("/intelligence/passes", cfg.IntelligenceHandler.ListPasses)

		// Worklist
		api.GET("/issues", cfg.IssueHandler.List)
		api.GET("/issues/:id", cfg.IssueHandler.Get)
		api.GET("/issues/:id/explanation", cfg.IssueHandler.GetExplanation)

		// Scores
		api.GET("/baselines", cfg.BaselineHandler.GetCurrent)
		api.GET("/risk-scores", cfg.RiskScoreHandler.ListCurrent)

		// Escalations
		api.GET("/escalations", cfg.EscalationHandler.ListOpen)
		api.POST("/escalations/:id/acknowledge", cfg.EscalationHandler.Acknowledge)
		api.POST("/escalations/:id/assign", cfg.EscalationHandler.Assign)
		api.POST("/escalations/:id/start", cfg.EscalationHandler.Start)
		api.POST("/escalations/:id/resolve", cfg.EscalationHandler.Resolve)

		// Tenant configuration
		api.GET("/tenants/:id/config", cfg.TenantHandler.GetConfig)
		api.PUT("/tenants/:id/config", cfg.TenantHandler.SetConfig)
	}

	return router
}
