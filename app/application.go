package app

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crowdlens/crowdlens/config"
	"github.com/crowdlens/crowdlens/db"
)

type Application struct {
	Config    config.AppConfig
	DB        db.Querier
	Pipeline  Pipeline
	Results   *ResultCache
	Validator RequestValidator
	EventBus  *EventBus
	StartedAt time.Time

	dbconn          *pgxpool.Pool
	stopMaintenance func()
	stopPipeline    func()
	shutdownOnce    sync.Once
}

func NewApp(appConfig *config.AppConfig) (*Application, error) {
	conn, err := connectToDB(appConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return nil, err
	}
	queries := db.New(conn)

	bus := NewEventBus()
	analyzer := NewHTTPAnalyzer(appConfig.AnalyzerURL, appConfig.AnalyzerTimeout)
	dispatcher := NewDispatcher(DispatcherConfig{
		Workers:           appConfig.PipelineWorkers,
		QueueSize:         appConfig.PipelineQueueSize,
		MaxConcurrent:     appConfig.MaxConcurrentJobs,
		MaxRetries:        appConfig.MaxRetries,
		MaxBackoffSeconds: appConfig.MaxBackoffSeconds,
	}, queries, analyzer, bus)

	cacheConfig := CacheConfig{
		EnableCaching: appConfig.EnableCaching,
		CacheTTL:      appConfig.CacheTTL,
		MaxCacheSize:  appConfig.MaxCacheSize,
	}

	return &Application{
		Config:          *appConfig,
		DB:              queries,
		Pipeline:        dispatcher,
		Results:         NewResultCache(cacheConfig, queries, dispatcher),
		Validator:       NewRequestValidator(0),
		EventBus:        bus,
		StartedAt:       time.Now(),
		dbconn:          conn,
		stopMaintenance: func() {},
		stopPipeline:    dispatcher.Stop,
	}, nil
}

func (a *Application) SetStopMaintenance(fn func()) {
	a.stopMaintenance = fn
}
