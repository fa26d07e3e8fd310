package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/caresignal/caresignal-backend/internal/clients/redis"
	"github.com/caresignal/caresignal-backend/internal/db"
	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/observability"
	"github.com/caresignal/caresignal-backend/internal/scheduler"
	"github.com/caresignal/caresignal-backend/internal/server"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Bus      redis.PassBus

	scheduler    *scheduler.Scheduler
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "caresignal",
		Environment: cfg.Env,
		Version:     os.Getenv("SERVICE_VERSION"),
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	// Redis is optional: without it pass locking and completion events are
	// skipped, the pipeline itself stays correct through idempotent writes.
	var bus redis.PassBus
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		b, err := redis.NewPassBus(log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init redis pass bus: %w", err)
		}
		bus = b
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, bus)
	handlerset := wireHandlers(log, serviceset)

	router := server.NewRouter(server.RouterConfig{
		ServiceName:         "caresignal",
		ObservationHandler:  handlerset.Observation,
		IntelligenceHandler: handlerset.Intelligence,
		BaselineHandler:     handlerset.Baseline,
		IssueHandler:        handlerset.Issue,
		RiskScoreHandler:    handlerset.RiskScore,
		EscalationHandler:   handlerset.Escalation,
		TenantHandler:       handlerset.Tenant,
	})

	sched := scheduler.NewScheduler(log, reposet.Observation, serviceset.Intelligence, cfg.Pipeline.PassIntervalMinutes)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Bus:          bus,
		scheduler:    sched,
		otelShutdown: otelShutdown,
	}, nil
}

func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.scheduler != nil {
		a.scheduler.Start(ctx)
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Bus != nil {
		_ = a.Bus.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
