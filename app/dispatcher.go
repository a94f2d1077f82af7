package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/crowdlens/crowdlens/db"
)

// DispatcherConfig sizes the in-process pipeline.
type DispatcherConfig struct {
	Workers           int
	QueueSize         int
	MaxConcurrent     int
	MaxRetries        int
	MaxBackoffSeconds int
}

// analysisTask is one attempt at running a job through the pipeline steps.
type analysisTask struct {
	jobID      string
	attemptNum int // 0-indexed attempt number (0 = first attempt)
}

// jobRecord holds a job's bookkeeping. Mutated only under Dispatcher.mu.
type jobRecord struct {
	job       AnalysisJob
	status    JobStatus
	result    db.AnalysisResult
	hasResult bool
}

var pipelineSteps = []PipelineStep{
	{Name: "fetch", Description: "Load the post and its comments from storage"},
	{Name: "analyze", Description: "Run sentiment and theme inference over the comments"},
	{Name: "persist", Description: "Write the analysis result to storage"},
}

// Dispatcher is the in-process implementation of the Pipeline contract: a
// fixed worker pool fed by a buffered task queue, with per-job status
// bookkeeping and retry-with-backoff for transient analyzer failures.
//
// The at-most-one-job-per-fingerprint guarantee lives here: Submit checks the
// fingerprint index and registers the new job under a single lock, so two
// identical concurrent submissions always collapse to one job.
type Dispatcher struct {
	cfg      DispatcherConfig
	db       db.Querier
	analyzer Analyzer
	bus      *EventBus

	mu     sync.Mutex
	jobs   map[string]*jobRecord
	active map[string]string // fingerprint -> job id for non-terminal jobs
	closed bool

	taskQueue  chan analysisTask
	sem        chan struct{}
	inflightWg sync.WaitGroup
	workerWg   sync.WaitGroup

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
	stopOnce       sync.Once
}

var _ Pipeline = (*Dispatcher)(nil)

// NewDispatcher builds the dispatcher and starts its worker goroutines.
// Call Stop to drain in-flight jobs and shut the pool down.
func NewDispatcher(cfg DispatcherConfig, querier db.Querier, analyzer Analyzer, bus *EventBus) *Dispatcher {
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		cfg:            cfg,
		db:             querier,
		analyzer:       analyzer,
		bus:            bus,
		jobs:           make(map[string]*jobRecord),
		active:         make(map[string]string),
		taskQueue:      make(chan analysisTask, cfg.QueueSize),
		sem:            make(chan struct{}, cfg.MaxConcurrent),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}

	d.workerWg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go func() {
			defer d.workerWg.Done()
			for task := range d.taskQueue {
				d.runTask(task)
			}
		}()
	}

	return d
}

// Submit registers a job and enqueues its first attempt. When a job for the
// same fingerprint is already in flight, that job's id is returned with
// existing=true and nothing is enqueued.
func (d *Dispatcher) Submit(ctx context.Context, job AnalysisJob) (string, bool, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return "", false, ErrPipelineUnavailable
	}
	if existingID, ok := d.active[job.Fingerprint]; ok {
		d.mu.Unlock()
		return existingID, true, nil
	}

	if job.JobID == "" {
		job.JobID = uuid.Must(uuid.NewV7()).String()
	}
	now := time.Now()
	d.jobs[job.JobID] = &jobRecord{
		job: job,
		status: JobStatus{
			JobID:           job.JobID,
			State:           JobStateQueued,
			TotalSteps:      len(pipelineSteps),
			StepDescription: "waiting for a worker",
			CreatedAt:       now,
		},
	}
	d.active[job.Fingerprint] = job.JobID
	// Count the send before releasing the lock. Stop flips closed under the
	// same lock, so its Wait covers every Submit that passed the check above
	// and the queue cannot close underneath the send below.
	d.inflightWg.Add(1)
	d.mu.Unlock()

	slog.Info("Analysis job submitted",
		"job_id", job.JobID,
		"post_id", UuidToString(job.PostID),
		"priority", string(job.Priority),
	)
	d.publish(BusMessage{
		Type:   BusMessageJobSubmitted,
		JobID:  job.JobID,
		PostID: UuidToString(job.PostID),
		State:  JobStateQueued,
	})

	d.taskQueue <- analysisTask{jobID: job.JobID}
	return job.JobID, false, nil
}

// Status returns a copy of the job's current status.
func (d *Dispatcher) Status(ctx context.Context, jobID string) (JobStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.jobs[jobID]
	if !ok {
		return JobStatus{}, ErrJobNotFound
	}
	return rec.status, nil
}

// Result returns the completed job's analysis result.
func (d *Dispatcher) Result(ctx context.Context, jobID string) (db.AnalysisResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.jobs[jobID]
	if !ok {
		return db.AnalysisResult{}, ErrJobNotFound
	}
	if rec.status.State == JobStateFailed {
		return db.AnalysisResult{}, fmt.Errorf("job %s failed: %s", jobID, rec.status.Error)
	}
	if !rec.hasResult {
		return db.AnalysisResult{}, ErrJobNotCompleted
	}
	return rec.result, nil
}

// ActiveJobID returns the in-flight job id for a fingerprint, if any.
func (d *Dispatcher) ActiveJobID(ctx context.Context, fingerprint string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.active[fingerprint]
	return id, ok
}

// QueueStats summarizes current pipeline load.
func (d *Dispatcher) QueueStats(ctx context.Context) QueueStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := QueueStats{
		Total:         len(d.jobs),
		MaxConcurrent: d.cfg.MaxConcurrent,
	}
	for _, rec := range d.jobs {
		switch rec.status.State {
		case JobStateQueued:
			stats.Waiting++
		case JobStateFetching, JobStateAnalyzing, JobStatePersisting:
			stats.Active++
		}
	}
	return stats
}

// Steps returns static metadata about the pipeline stages.
func (d *Dispatcher) Steps() []PipelineStep {
	steps := make([]PipelineStep, len(pipelineSteps))
	copy(steps, pipelineSteps)
	return steps
}

// Cleanup drops bookkeeping for terminal jobs that finished before the
// retention window. Returns the number of records removed.
func (d *Dispatcher) Cleanup(ctx context.Context, olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for id, rec := range d.jobs {
		if !rec.status.State.Terminal() {
			continue
		}
		if rec.status.FinishedAt != nil && rec.status.FinishedAt.Before(cutoff) {
			delete(d.jobs, id)
			removed++
		}
	}
	return removed
}

// Stop drains the queue and shuts the worker pool down. Safe to call more
// than once. Pending retry timers are signalled to abandon their attempt.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		d.shutdownCancel()

		slog.Info("Pipeline stopping, waiting for in-flight jobs")
		d.inflightWg.Wait()

		// All sends are done, safe to close the queue
		close(d.taskQueue)
		d.workerWg.Wait()
		slog.Info("Pipeline stopped")
	})
}

// runTask executes one attempt at a job. Called by worker goroutines.
func (d *Dispatcher) runTask(task analysisTask) {
	defer d.inflightWg.Done()

	ctx := context.Background()

	d.mu.Lock()
	rec, ok := d.jobs[task.jobID]
	if !ok {
		d.mu.Unlock()
		return
	}
	job := rec.job
	d.mu.Unlock()

	logger := slog.Default().With("job_id", job.JobID, "post_id", UuidToString(job.PostID))

	// Bound overall concurrency across workers.
	d.sem <- struct{}{}
	defer func() { <-d.sem }()

	d.setStep(job.JobID, JobStateFetching, 1, "loading post and comments")

	post, err := d.db.GetPostByID(ctx, job.PostID)
	if err != nil {
		logger.Error("Failed to load post for analysis", "error", err)
		d.markFailed(job, fmt.Sprintf("load post: %v", err))
		return
	}

	comments, err := d.db.ListCommentsForPost(ctx, job.PostID)
	if err != nil {
		logger.Error("Failed to load comments for analysis", "error", err)
		d.markFailed(job, fmt.Sprintf("load comments: %v", err))
		return
	}
	if job.Options.MaxComments > 0 && len(comments) > job.Options.MaxComments {
		comments = comments[:job.Options.MaxComments]
	}

	d.setStep(job.JobID, JobStateAnalyzing, 2, "running sentiment inference")

	analyzed, err := d.analyzer.Analyze(ctx, post, comments)
	if err != nil {
		d.retryOrFail(job, task, logger, err)
		return
	}

	d.setStep(job.JobID, JobStatePersisting, 3, "persisting result")

	now := time.Now().UTC()
	themes := analyzed.Themes
	if !job.Options.IncludeThemes {
		themes = nil
	}
	result, err := d.db.InsertAnalysisResult(ctx, db.InsertAnalysisResultParams{
		ID:           pgtype.UUID{Bytes: uuid.Must(uuid.NewV7()), Valid: true},
		JobID:        job.JobID,
		PostID:       job.PostID,
		UserID:       job.UserID,
		Positive:     analyzed.Sentiment.Positive,
		Negative:     analyzed.Sentiment.Negative,
		Neutral:      analyzed.Sentiment.Neutral,
		Themes:       themes,
		CommentCount: int32(len(comments)),
		AnalyzedAt:   pgtype.Timestamptz{Time: now, Valid: true},
		CreatedAt:    pgtype.Timestamptz{Time: now, Valid: true},
	})
	if err != nil {
		logger.Error("Failed to persist analysis result", "error", err)
		d.markFailed(job, fmt.Sprintf("persist result: %v", err))
		return
	}

	d.markCompleted(job, result)
	logger.Info("Analysis job completed", "comments", len(comments))
}

// retryOrFail schedules a backoff retry for a transient analyzer failure, or
// fails the job once retries are exhausted.
func (d *Dispatcher) retryOrFail(job AnalysisJob, task analysisTask, logger *slog.Logger, cause error) {
	if task.attemptNum >= d.cfg.MaxRetries {
		logger.Warn("Analyzer retries exhausted",
			"attempt", task.attemptNum+1,
			"max_retries", d.cfg.MaxRetries,
			"error", cause,
		)
		d.markFailed(job, fmt.Sprintf("analyze: %v", cause))
		return
	}

	delay := calculateBackoff(task.attemptNum, d.cfg.MaxBackoffSeconds)
	logger.Info("Scheduling analysis retry",
		"attempt", task.attemptNum+1,
		"next_attempt", task.attemptNum+2,
		"delay_seconds", delay.Seconds(),
		"error", cause,
	)

	d.setStep(job.JobID, JobStateQueued, 0,
		fmt.Sprintf("retrying after analyzer failure (attempt %d)", task.attemptNum+2))

	nextTask := analysisTask{jobID: task.jobID, attemptNum: task.attemptNum + 1}

	// Non-blocking retry: increment inflight before scheduling timer
	d.inflightWg.Add(1)
	time.AfterFunc(delay, func() {
		if d.shutdownCtx.Err() != nil {
			d.markFailed(job, "shutdown before retry")
			d.inflightWg.Done() // abandon retry on shutdown
			return
		}
		d.taskQueue <- nextTask
	})
}

func (d *Dispatcher) setStep(jobID string, state JobState, step int, description string) {
	d.mu.Lock()
	rec, ok := d.jobs[jobID]
	if !ok {
		d.mu.Unlock()
		return
	}
	now := time.Now()
	if rec.status.StartedAt == nil && state != JobStateQueued {
		rec.status.StartedAt = &now
	}
	rec.status.State = state
	rec.status.Step = step
	rec.status.StepDescription = description
	rec.status.Progress = float64(step) / float64(len(pipelineSteps))
	status := rec.status
	postID := rec.job.PostID
	d.mu.Unlock()

	d.publish(BusMessage{
		Type:     BusMessageJobProgress,
		JobID:    jobID,
		PostID:   UuidToString(postID),
		State:    status.State,
		Progress: status.Progress,
		Detail:   description,
	})
}

func (d *Dispatcher) markCompleted(job AnalysisJob, result db.AnalysisResult) {
	now := time.Now()

	d.mu.Lock()
	if rec, ok := d.jobs[job.JobID]; ok {
		rec.status.State = JobStateCompleted
		rec.status.Step = len(pipelineSteps)
		rec.status.Progress = 1
		rec.status.StepDescription = "done"
		rec.status.FinishedAt = &now
		rec.result = result
		rec.hasResult = true
	}
	delete(d.active, job.Fingerprint)
	d.mu.Unlock()

	d.publish(BusMessage{
		Type:   BusMessageJobCompleted,
		JobID:  job.JobID,
		PostID: UuidToString(job.PostID),
		State:  JobStateCompleted,
	})
}

func (d *Dispatcher) markFailed(job AnalysisJob, reason string) {
	now := time.Now()

	d.mu.Lock()
	if rec, ok := d.jobs[job.JobID]; ok {
		rec.status.State = JobStateFailed
		rec.status.StepDescription = "failed"
		rec.status.Error = reason
		rec.status.FinishedAt = &now
	}
	delete(d.active, job.Fingerprint)
	d.mu.Unlock()

	d.publish(BusMessage{
		Type:   BusMessageJobFailed,
		JobID:  job.JobID,
		PostID: UuidToString(job.PostID),
		State:  JobStateFailed,
		Detail: reason,
	})
}

func (d *Dispatcher) publish(msg BusMessage) {
	if d.bus != nil {
		d.bus.Publish(msg)
	}
}

// calculateBackoff returns the delay duration for exponential backoff.
// Base delay is 1 second, doubling each attempt, capped at maxBackoffSeconds.
func calculateBackoff(attemptNum int, maxBackoffSeconds int) time.Duration {
	delaySeconds := math.Pow(2, float64(attemptNum))
	if delaySeconds > float64(maxBackoffSeconds) {
		delaySeconds = float64(maxBackoffSeconds)
	}
	return time.Duration(delaySeconds) * time.Second
}
