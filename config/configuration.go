package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"
)

type AppConfig struct {
	DevMode    bool   `arg:"--dev,env:DEV_MODE" default:"false"`
	Port       int    `arg:"-p,--port,env:LISTEN_PORT" default:"8010"`
	LogLevel   string `arg:"--log-level,env:LOG_LEVEL" default:"default" help:"Log level to use.  Valid values are: debug, info, and warn/warning.  If default the level will be info or debug in dev mode."`
	DBHost     string `arg:"--db-host,env:DB_HOST" default:"localhost"`
	DBName     string `arg:"--db-name,env:DB_NAME" default:"crowdlens"`
	DBPort     int    `arg:"--db-port,env:DB_PORT" default:"5432"`
	DBMaxConns int    `arg:"--db-max-conns,env:DB_MAX_CONNS" default:"10"`
	DBMinConns int    `arg:"--db-min-conns,env:DB_MIN_CONNS" default:"1"`
	DBSSLMode  string `arg:"--db-ssl-mode,env:DB_SSL_MODE" default:"disable"`
	DBUsername string `arg:"--db-username,env:DB_USERNAME" default:"crowdlens"`
	DBPassword string `arg:"--db-password,env:DB_PASSWORD" default:"badpassword"`

	AdminSecret string `arg:"--admin-secret,env:ADMIN_SECRET" default:"" help:"Pre-shared secret for admin API endpoints (X-CrowdLens-Admin-Secret header)."`

	EnableCaching       bool          `arg:"--enable-caching,env:ENABLE_CACHING" default:"true" help:"Serve repeated analysis requests from the result cache."`
	CacheTTL            time.Duration `arg:"--cache-ttl,env:CACHE_TTL" default:"30m" help:"Lifetime of a cached analysis result."`
	MaxCacheSize        int           `arg:"--max-cache-size,env:MAX_CACHE_SIZE" default:"1000" help:"Hard cap on live entries per cache tier."`
	MaintenanceInterval time.Duration `arg:"--maintenance-interval,env:MAINTENANCE_INTERVAL" default:"5m" help:"How often the background cache sweep runs."`
	RecentWindow        time.Duration `arg:"--recent-window,env:RECENT_WINDOW" default:"24h" help:"Trailing window for the 'recent analyses' health count."`

	PipelineWorkers   int           `arg:"--pipeline-workers,env:PIPELINE_WORKERS" default:"4" help:"Analysis pipeline worker goroutines."`
	PipelineQueueSize int           `arg:"--pipeline-queue-size,env:PIPELINE_QUEUE_SIZE" default:"100"`
	MaxConcurrentJobs int           `arg:"--max-concurrent-jobs,env:MAX_CONCURRENT_JOBS" default:"4" help:"Upper bound on analyses running at once."`
	MaxRetries        int           `arg:"--max-retries,env:MAX_RETRIES" default:"3" help:"Retries per pipeline job on transient analyzer failure."`
	MaxBackoffSeconds int           `arg:"--max-backoff-seconds,env:MAX_BACKOFF_SECONDS" default:"60"`
	JobRetention      time.Duration `arg:"--job-retention,env:JOB_RETENTION" default:"1h" help:"How long terminal job bookkeeping is kept before cleanup."`
	AnalysisRetention time.Duration `arg:"--analysis-retention,env:ANALYSIS_RETENTION" default:"720h" help:"How long persisted analysis results are kept."`

	AnalyzerURL     string        `arg:"--analyzer-url,env:ANALYZER_URL" default:"http://localhost:9100/v1/analyze" help:"Sentiment inference service endpoint."`
	AnalyzerTimeout time.Duration `arg:"--analyzer-timeout,env:ANALYZER_TIMEOUT" default:"60s"`
}

func LoadConfig() (*AppConfig, error) {
	var appConfig AppConfig
	arg.MustParse(&appConfig)

	if appConfig.DevMode {
		err := godotenv.Load(".env")
		if err == nil {
			// re-parse to get env vars from .env
			slog.Info("Loaded .env")
			arg.MustParse(&appConfig)
		}
	}

	if appConfig.LogLevel == "default" {
		if appConfig.DevMode {
			logLevel.Set(slog.LevelDebug)
		} else {
			logLevel.Set(slog.LevelInfo)
		}
	} else {
		intendedLevel := strings.ToLower(appConfig.LogLevel)
		switch intendedLevel {
		case "debug":
			logLevel.Set(slog.LevelDebug)
		case "info":
			logLevel.Set(slog.LevelInfo)
		case "warn", "warning":
			logLevel.Set(slog.LevelWarn)
		default:
			slog.Error("Unable to configure log level", "level", appConfig.LogLevel)
		}
	}

	return &appConfig, nil
}
