package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/crowdlens/crowdlens/db"
)

// avgJobSeconds is the rough per-job duration used for queue-time estimates.
const avgJobSeconds = 30

// AnalysisOptions are the semantically meaningful knobs of a request; they
// participate in the fingerprint.
type AnalysisOptions struct {
	IncludeThemes bool `json:"include_themes"`
	MaxComments   int  `json:"max_comments"`
}

// AnalysisRequest asks for sentiment/theme analysis of one post's comments.
// SkipCache bypasses the cache read only; a fresh result is still written
// back on completion so later identical requests benefit.
type AnalysisRequest struct {
	PostID         string          `json:"post_id"`
	UserID         string          `json:"user_id"`
	Priority       JobPriority     `json:"priority"`
	SkipCache      bool            `json:"skip_cache"`
	SkipValidation bool            `json:"skip_validation"`
	Options        AnalysisOptions `json:"options"`
}

// ValidationResult reports request well-formedness. Validation failures are
// values in the response, never errors.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// AnalysisResponse is the outcome of RequestAnalysis: served from cache,
// attached to an existing job, or submitted as a new job.
type AnalysisResponse struct {
	JobID            string             `json:"job_id,omitempty"`
	Cached           bool               `json:"cached"`
	CacheHit         bool               `json:"cache_hit"`
	EstimatedSeconds float64            `json:"estimated_seconds"`
	Validation       ValidationResult   `json:"validation"`
	Result           *db.AnalysisResult `json:"result,omitempty"`
}

// RequestAnalysis decides how an incoming request is served. In order:
// validation, fingerprint cache, database cache fallback, deduplication
// against an in-flight job, fresh submission. The check-then-submit sequence
// needs no lock here: Submit owns the per-fingerprint uniqueness guarantee,
// so a race between our ActiveJobID check and Submit collapses inside the
// pipeline, which hands back the already-active job id.
func (a *Application) RequestAnalysis(ctx context.Context, req AnalysisRequest) (AnalysisResponse, error) {
	if req.Priority == "" {
		req.Priority = PriorityNormal
	}

	if !req.SkipValidation {
		valid, errs := a.Validator.ValidateAnalysisRequest(req)
		if !valid {
			return AnalysisResponse{
				Validation: ValidationResult{Valid: false, Errors: errs},
			}, nil
		}
	}
	okValidation := ValidationResult{Valid: true, Errors: []string{}}

	if !req.SkipCache {
		if result, ok := a.Results.GetByFingerprint(req); ok {
			log(ctx).Debug("Analysis served from fingerprint cache", "post_id", req.PostID)
			return AnalysisResponse{
				JobID:      result.JobID,
				Cached:     true,
				CacheHit:   true,
				Validation: okValidation,
				Result:     &result,
			}, nil
		}
		if result, ok := a.Results.CheckDatabaseCache(ctx, req); ok {
			log(ctx).Debug("Analysis served from database cache", "post_id", req.PostID)
			return AnalysisResponse{
				JobID:      result.JobID,
				Cached:     true,
				CacheHit:   true,
				Validation: okValidation,
				Result:     &result,
			}, nil
		}
	}

	fingerprint := Fingerprint(req)

	if jobID, ok := a.Pipeline.ActiveJobID(ctx, fingerprint); ok {
		log(ctx).Debug("Attached to in-flight analysis job", "job_id", jobID, "post_id", req.PostID)
		// Idempotent: the original submitter already scheduled this.
		a.Results.ScheduleResultCaching(jobID, req)
		return AnalysisResponse{
			JobID:            jobID,
			Cached:           false,
			CacheHit:         false,
			EstimatedSeconds: a.estimateSeconds(ctx),
			Validation:       okValidation,
		}, nil
	}

	postID, err := parseUUID(req.PostID)
	if err != nil {
		return AnalysisResponse{
			Validation: ValidationResult{Valid: false, Errors: []string{"post_id must be a valid UUID"}},
		}, nil
	}
	userID, err := parseUUID(req.UserID)
	if err != nil {
		return AnalysisResponse{
			Validation: ValidationResult{Valid: false, Errors: []string{"user_id must be a valid UUID"}},
		}, nil
	}

	jobID, existing, err := a.Pipeline.Submit(ctx, AnalysisJob{
		PostID:      postID,
		UserID:      userID,
		Fingerprint: fingerprint,
		Priority:    req.Priority,
		Options:     req.Options,
	})
	if err != nil {
		return AnalysisResponse{}, fmt.Errorf("submit analysis job: %w", err)
	}
	if existing {
		log(ctx).Debug("Submission collapsed into in-flight job", "job_id", jobID)
	}

	a.Results.ScheduleResultCaching(jobID, req)

	return AnalysisResponse{
		JobID:            jobID,
		Cached:           false,
		CacheHit:         false,
		EstimatedSeconds: a.estimateSeconds(ctx),
		Validation:       okValidation,
	}, nil
}

// GetAnalysisStatus is a pure passthrough to the pipeline. Status changes too
// quickly to benefit from caching.
func (a *Application) GetAnalysisStatus(ctx context.Context, jobID string) (JobStatus, error) {
	return a.Pipeline.Status(ctx, jobID)
}

// GetAnalysisResults returns a completed job's result: job-id cache first,
// then the pipeline, then durable storage (the pipeline's bookkeeping may
// have been cleaned up while the persisted result survives).
func (a *Application) GetAnalysisResults(ctx context.Context, jobID string) (db.AnalysisResult, error) {
	if result, ok := a.Results.GetByJobID(jobID); ok {
		return result, nil
	}

	result, err := a.Pipeline.Result(ctx, jobID)
	if err == nil {
		a.Results.SetByJobID(jobID, result)
		return result, nil
	}
	if !errors.Is(err, ErrJobNotFound) {
		return db.AnalysisResult{}, err
	}

	result, dbErr := a.DB.GetAnalysisByJobID(ctx, jobID)
	if dbErr != nil {
		if errors.Is(dbErr, pgx.ErrNoRows) {
			return db.AnalysisResult{}, ErrJobNotFound
		}
		return db.AnalysisResult{}, fmt.Errorf("load analysis result: %w", dbErr)
	}

	a.Results.SetByJobID(jobID, result)
	return result, nil
}

// HistoryOptions controls pagination and payload size of a history query.
// FromCache prefers the job-id cache for each row's payload; IncludeResults
// toggles whether sentiment payloads are included at all.
type HistoryOptions struct {
	Limit          int  `json:"limit"`
	Offset         int  `json:"offset"`
	IncludeResults bool `json:"include_results"`
	FromCache      bool `json:"from_cache"`
}

type AnalysisHistoryItem struct {
	JobID        string              `json:"job_id"`
	PostID       string              `json:"post_id"`
	AnalyzedAt   time.Time           `json:"analyzed_at"`
	CommentCount int32               `json:"comment_count"`
	FromCache    bool                `json:"from_cache"`
	Sentiment    *SentimentBreakdown `json:"sentiment,omitempty"`
	Themes       []string            `json:"themes,omitempty"`
}

type AnalysisHistory struct {
	Items  []AnalysisHistoryItem `json:"items"`
	Total  int64                 `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// GetUserAnalysisHistory lists a user's past analyses, newest first.
func (a *Application) GetUserAnalysisHistory(ctx context.Context, userID string, opts HistoryOptions) (AnalysisHistory, error) {
	uid, err := parseUUID(userID)
	if err != nil {
		return AnalysisHistory{}, fmt.Errorf("invalid user id: %w", err)
	}

	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	rows, err := a.DB.ListAnalysesForUser(ctx, db.ListAnalysesForUserParams{
		UserID: uid,
		Limit:  int32(opts.Limit),
		Offset: int32(opts.Offset),
	})
	if err != nil {
		return AnalysisHistory{}, fmt.Errorf("list analyses: %w", err)
	}

	total, err := a.DB.CountAnalysesForUser(ctx, uid)
	if err != nil {
		return AnalysisHistory{}, fmt.Errorf("count analyses: %w", err)
	}

	history := AnalysisHistory{
		Items:  make([]AnalysisHistoryItem, 0, len(rows)),
		Total:  total,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}
	for _, row := range rows {
		item := AnalysisHistoryItem{
			JobID:        row.JobID,
			PostID:       UuidToString(row.PostID),
			AnalyzedAt:   row.AnalyzedAt.Time,
			CommentCount: row.CommentCount,
		}
		if opts.IncludeResults {
			source := row
			if opts.FromCache {
				if cached, ok := a.Results.GetByJobID(row.JobID); ok {
					source = cached
					item.FromCache = true
				}
			}
			item.Sentiment = &SentimentBreakdown{
				Positive: source.Positive,
				Negative: source.Negative,
				Neutral:  source.Neutral,
			}
			item.Themes = source.Themes
		}
		history.Items = append(history.Items, item)
	}
	return history, nil
}

func (a *Application) estimateSeconds(ctx context.Context) float64 {
	stats := a.Pipeline.QueueStats(ctx)
	concurrency := stats.MaxConcurrent
	if concurrency < 1 {
		concurrency = 1
	}
	ahead := stats.Waiting + stats.Active
	return float64(avgJobSeconds) * float64(ahead/concurrency+1)
}
