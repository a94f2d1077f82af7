package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/crowdlens/crowdlens/app"
	"github.com/crowdlens/crowdlens/config"
	"github.com/crowdlens/crowdlens/db"
)

// NewUUID returns a pgtype.UUID with a new random UUID.
func NewUUID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.Must(uuid.NewV7()), Valid: true}
}

// NewTimestamp returns a pgtype.Timestamptz set to now.
func NewTimestamp() pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true}
}

// TimestampAt returns a pgtype.Timestamptz at the given time.
func TimestampAt(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

// AnalysisResultOpt is a functional option for building test AnalysisResults.
type AnalysisResultOpt func(*db.AnalysisResult)

// NewAnalysisResult creates a db.AnalysisResult with sensible defaults.
func NewAnalysisResult(opts ...AnalysisResultOpt) db.AnalysisResult {
	r := db.AnalysisResult{
		ID:           NewUUID(),
		JobID:        uuid.Must(uuid.NewV7()).String(),
		PostID:       NewUUID(),
		UserID:       NewUUID(),
		Positive:     0.6,
		Negative:     0.1,
		Neutral:      0.3,
		Themes:       []string{"pricing", "support"},
		CommentCount: 42,
		AnalyzedAt:   NewTimestamp(),
		CreatedAt:    NewTimestamp(),
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// PostOpt is a functional option for building test Posts.
type PostOpt func(*db.Post)

// NewPost creates a db.Post with sensible defaults.
func NewPost(opts ...PostOpt) db.Post {
	p := db.Post{
		ID:         NewUUID(),
		UserID:     NewUUID(),
		Platform:   "mastodon",
		ExternalID: "ext-123",
		Content:    "We just shipped a big update!",
		PostedAt:   NewTimestamp(),
		CreatedAt:  NewTimestamp(),
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// CommentOpt is a functional option for building test Comments.
type CommentOpt func(*db.Comment)

// NewComment creates a db.Comment with sensible defaults.
func NewComment(opts ...CommentOpt) db.Comment {
	c := db.Comment{
		ID:        NewUUID(),
		PostID:    NewUUID(),
		Author:    "commenter",
		Content:   "Love the new release",
		PostedAt:  NewTimestamp(),
		CreatedAt: NewTimestamp(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// TestCacheConfig returns a CacheConfig suitable for tests.
func TestCacheConfig() app.CacheConfig {
	return app.CacheConfig{
		EnableCaching: true,
		CacheTTL:      time.Minute,
		MaxCacheSize:  100,
	}
}

// AppOpt is a functional option for building test Applications.
type AppOpt func(*app.Application)

// NewTestApp creates an app.Application suitable for testing.
// It uses the provided mock Querier and pipeline, and sensible config defaults.
func NewTestApp(mockDB *MockQuerier, pipeline app.Pipeline, opts ...AppOpt) *app.Application {
	cfg := config.AppConfig{
		Port:              8010,
		AdminSecret:       "test-admin-secret",
		EnableCaching:     true,
		CacheTTL:          time.Minute,
		MaxCacheSize:      100,
		RecentWindow:      24 * time.Hour,
		PipelineWorkers:   2,
		PipelineQueueSize: 100,
		MaxConcurrentJobs: 2,
		MaxRetries:        3,
		MaxBackoffSeconds: 60,
		JobRetention:      time.Hour,
		AnalysisRetention: 720 * time.Hour,
	}
	a := &app.Application{
		Config:    cfg,
		DB:        mockDB,
		Pipeline:  pipeline,
		Results:   app.NewResultCache(TestCacheConfig(), mockDB, pipeline),
		Validator: app.NewRequestValidator(0),
		EventBus:  app.NewEventBus(),
		StartedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}
