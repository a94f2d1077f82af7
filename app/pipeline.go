package app

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/crowdlens/crowdlens/db"
)

var (
	// ErrJobNotFound means the pipeline has no record of the job id.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotCompleted means the job exists but has not reached a terminal
	// state, so no result is available yet.
	ErrJobNotCompleted = errors.New("job not completed")
	// ErrPipelineUnavailable means the orchestrator could not be reached.
	// Callers must see this as a failure, never as an empty result.
	ErrPipelineUnavailable = errors.New("analysis pipeline unavailable")
)

// JobState is the lifecycle state of an analysis job.
type JobState string

const (
	JobStateQueued     JobState = "queued"
	JobStateFetching   JobState = "fetching"
	JobStateAnalyzing  JobState = "analyzing"
	JobStatePersisting JobState = "persisting"
	JobStateCompleted  JobState = "completed"
	JobStateFailed     JobState = "failed"
)

// Terminal reports whether no further state transitions can occur.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// JobPriority is advisory ordering information. It never affects cache
// semantics or the request fingerprint.
type JobPriority string

const (
	PriorityLow    JobPriority = "low"
	PriorityNormal JobPriority = "normal"
	PriorityHigh   JobPriority = "high"
)

func (p JobPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// AnalysisJob is a validated unit of work handed to the pipeline.
type AnalysisJob struct {
	JobID       string
	PostID      pgtype.UUID
	UserID      pgtype.UUID
	Fingerprint string
	Priority    JobPriority
	Options     AnalysisOptions
}

// JobStatus describes a job's progress through the pipeline.
type JobStatus struct {
	JobID           string     `json:"job_id"`
	State           JobState   `json:"state"`
	Progress        float64    `json:"progress"`
	Step            int        `json:"step"`
	TotalSteps      int        `json:"total_steps"`
	StepDescription string     `json:"step_description"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// QueueStats summarizes pipeline load.
type QueueStats struct {
	Waiting       int `json:"waiting"`
	Active        int `json:"active"`
	Total         int `json:"total"`
	MaxConcurrent int `json:"max_concurrent"`
}

// PipelineStep is static metadata about one stage of the pipeline.
type PipelineStep struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Pipeline is the contract the cache and coordination layer needs from the
// analysis orchestrator. Submit owns the at-most-one-job-per-fingerprint
// guarantee: when a job for the same fingerprint is already in flight it
// returns that job's id with existing=true instead of creating a duplicate.
type Pipeline interface {
	Submit(ctx context.Context, job AnalysisJob) (jobID string, existing bool, err error)
	Status(ctx context.Context, jobID string) (JobStatus, error)
	Result(ctx context.Context, jobID string) (db.AnalysisResult, error)
	ActiveJobID(ctx context.Context, fingerprint string) (string, bool)
	QueueStats(ctx context.Context) QueueStats
	Steps() []PipelineStep
	Cleanup(ctx context.Context, olderThan time.Duration) int
}

// SentimentBreakdown is the normalized output of sentiment inference.
// Positive, Negative and Neutral are fractions summing to roughly 1.
type SentimentBreakdown struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// AnalyzerResult is what the external inference service produces for a post.
type AnalyzerResult struct {
	Sentiment SentimentBreakdown `json:"sentiment"`
	Themes    []string           `json:"themes"`
}

// Analyzer performs sentiment and theme inference on a post's comments.
// Inference itself lives outside this process; implementations are clients.
type Analyzer interface {
	Analyze(ctx context.Context, post db.Post, comments []db.Comment) (AnalyzerResult, error)
}
