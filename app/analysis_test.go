package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crowdlens/crowdlens/config"
	"github.com/crowdlens/crowdlens/db"
)

func newTestApplication(mockDB *analysisMockQuerier, pipeline Pipeline) *Application {
	return &Application{
		Config: config.AppConfig{
			AdminSecret:       "test-admin-secret",
			EnableCaching:     true,
			CacheTTL:          time.Minute,
			MaxCacheSize:      100,
			RecentWindow:      24 * time.Hour,
			JobRetention:      time.Hour,
			AnalysisRetention: 720 * time.Hour,
		},
		DB:        mockDB,
		Pipeline:  pipeline,
		Results:   NewResultCache(testCacheConfig(), mockDB, pipeline),
		Validator: NewRequestValidator(0),
		EventBus:  NewEventBus(),
		StartedAt: time.Now().UTC(),
	}
}

func idleQueueStats() QueueStats {
	return QueueStats{Waiting: 0, Active: 0, Total: 0, MaxConcurrent: 2}
}

func TestRequestAnalysisValidationFailure(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	resp, err := a.RequestAnalysis(context.Background(), AnalysisRequest{
		PostID: "not-a-uuid",
	})
	require.NoError(t, err, "validation failures are values, not errors")
	assert.False(t, resp.Validation.Valid)
	assert.Contains(t, resp.Validation.Errors, "post_id must be a valid UUID")
	assert.Contains(t, resp.Validation.Errors, "user_id is required")
	assert.Empty(t, resp.JobID)

	pipeline.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestRequestAnalysisFingerprintCacheHit(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	req := newTestRequest()
	result := newTestResult()
	a.Results.SetByFingerprint(req, result)

	resp, err := a.RequestAnalysis(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Cached)
	assert.True(t, resp.CacheHit)
	assert.True(t, resp.Validation.Valid)
	assert.Equal(t, result.JobID, resp.JobID)
	require.NotNil(t, resp.Result)
	assert.Equal(t, result.Positive, resp.Result.Positive)

	pipeline.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestRequestAnalysisDatabaseCacheFallback(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	req := newTestRequest()
	result := newTestResult()
	mockDB.On("GetLatestAnalysisForPost", mock.Anything, mock.Anything).Return(result, nil).Once()

	resp, err := a.RequestAnalysis(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Cached)
	assert.Equal(t, result.JobID, resp.JobID)

	pipeline.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	mockDB.AssertExpectations(t)
}

func TestRequestAnalysisAttachesToInflightJob(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	req := newTestRequest()
	mockDB.On("GetLatestAnalysisForPost", mock.Anything, mock.Anything).
		Return(db.AnalysisResult{}, pgx.ErrNoRows)
	pipeline.On("ActiveJobID", mock.Anything, Fingerprint(req)).Return("existing-job", true).Once()
	pipeline.On("QueueStats", mock.Anything).Return(idleQueueStats())
	pipeline.On("Status", mock.Anything, "existing-job").
		Return(JobStatus{JobID: "existing-job", State: JobStateAnalyzing}, nil).Maybe()

	resp, err := a.RequestAnalysis(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "existing-job", resp.JobID)
	assert.False(t, resp.Cached)
	assert.False(t, resp.CacheHit)
	assert.True(t, resp.Validation.Valid)

	pipeline.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestRequestAnalysisSubmitsFreshJob(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	req := newTestRequest()
	req.Options = AnalysisOptions{IncludeThemes: true, MaxComments: 10}

	mockDB.On("GetLatestAnalysisForPost", mock.Anything, mock.Anything).
		Return(db.AnalysisResult{}, pgx.ErrNoRows)
	pipeline.On("ActiveJobID", mock.Anything, Fingerprint(req)).Return("", false).Once()
	pipeline.On("Submit", mock.Anything, mock.MatchedBy(func(job AnalysisJob) bool {
		return job.Fingerprint == Fingerprint(req) &&
			job.Priority == PriorityNormal &&
			job.Options.IncludeThemes && job.Options.MaxComments == 10
	})).Return("new-job", false, nil).Once()
	pipeline.On("QueueStats", mock.Anything).Return(idleQueueStats())
	pipeline.On("Status", mock.Anything, "new-job").
		Return(JobStatus{JobID: "new-job", State: JobStateQueued}, nil).Maybe()

	resp, err := a.RequestAnalysis(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "new-job", resp.JobID)
	assert.False(t, resp.Cached)
	assert.True(t, resp.Validation.Valid)
	assert.Greater(t, resp.EstimatedSeconds, 0.0)

	pipeline.AssertExpectations(t)
}

func TestRequestAnalysisSkipCacheBypassesReads(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	req := newTestRequest()
	req.SkipCache = true

	// A perfectly good cached result exists but must be ignored.
	a.Results.SetByFingerprint(req, newTestResult())

	pipeline.On("ActiveJobID", mock.Anything, Fingerprint(req)).Return("", false).Once()
	pipeline.On("Submit", mock.Anything, mock.Anything).Return("fresh-job", false, nil).Once()
	pipeline.On("QueueStats", mock.Anything).Return(idleQueueStats())
	pipeline.On("Status", mock.Anything, "fresh-job").
		Return(JobStatus{JobID: "fresh-job", State: JobStateQueued}, nil).Maybe()

	resp, err := a.RequestAnalysis(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "fresh-job", resp.JobID)
	assert.False(t, resp.Cached)

	mockDB.AssertNotCalled(t, "GetLatestAnalysisForPost", mock.Anything, mock.Anything)
	pipeline.AssertExpectations(t)
}

func TestRequestAnalysisSubmitError(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	req := newTestRequest()
	mockDB.On("GetLatestAnalysisForPost", mock.Anything, mock.Anything).
		Return(db.AnalysisResult{}, pgx.ErrNoRows)
	pipeline.On("ActiveJobID", mock.Anything, mock.Anything).Return("", false).Once()
	pipeline.On("Submit", mock.Anything, mock.Anything).
		Return("", false, ErrPipelineUnavailable).Once()

	_, err := a.RequestAnalysis(context.Background(), req)
	assert.ErrorIs(t, err, ErrPipelineUnavailable)
}

func TestRequestAnalysisDefaultsPriority(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	req := newTestRequest()
	req.Priority = ""

	mockDB.On("GetLatestAnalysisForPost", mock.Anything, mock.Anything).
		Return(db.AnalysisResult{}, pgx.ErrNoRows)
	pipeline.On("ActiveJobID", mock.Anything, mock.Anything).Return("", false).Once()
	pipeline.On("Submit", mock.Anything, mock.MatchedBy(func(job AnalysisJob) bool {
		return job.Priority == PriorityNormal
	})).Return("job-1", false, nil).Once()
	pipeline.On("QueueStats", mock.Anything).Return(idleQueueStats())
	pipeline.On("Status", mock.Anything, "job-1").
		Return(JobStatus{JobID: "job-1", State: JobStateQueued}, nil).Maybe()

	_, err := a.RequestAnalysis(context.Background(), req)
	require.NoError(t, err)
	pipeline.AssertExpectations(t)
}

func TestGetAnalysisResultsCacheFirst(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	result := newTestResult()
	a.Results.SetByJobID(result.JobID, result)

	got, err := a.GetAnalysisResults(context.Background(), result.JobID)
	require.NoError(t, err)
	assert.Equal(t, result.JobID, got.JobID)

	pipeline.AssertNotCalled(t, "Result", mock.Anything, mock.Anything)
}

func TestGetAnalysisResultsFromPipeline(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	result := newTestResult()
	pipeline.On("Result", mock.Anything, result.JobID).Return(result, nil).Once()

	got, err := a.GetAnalysisResults(context.Background(), result.JobID)
	require.NoError(t, err)
	assert.Equal(t, result.JobID, got.JobID)

	// The fetched result is cached for the next call.
	got, err = a.GetAnalysisResults(context.Background(), result.JobID)
	require.NoError(t, err)
	assert.Equal(t, result.JobID, got.JobID)
	pipeline.AssertExpectations(t)
}

func TestGetAnalysisResultsDatabaseFallback(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	result := newTestResult()
	// The pipeline has cleaned up its bookkeeping; the row survives in storage.
	pipeline.On("Result", mock.Anything, result.JobID).
		Return(db.AnalysisResult{}, ErrJobNotFound).Once()
	mockDB.On("GetAnalysisByJobID", mock.Anything, result.JobID).Return(result, nil).Once()

	got, err := a.GetAnalysisResults(context.Background(), result.JobID)
	require.NoError(t, err)
	assert.Equal(t, result.JobID, got.JobID)
	mockDB.AssertExpectations(t)
}

func TestGetAnalysisResultsUnknownJob(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	pipeline.On("Result", mock.Anything, "nope").
		Return(db.AnalysisResult{}, ErrJobNotFound).Once()
	mockDB.On("GetAnalysisByJobID", mock.Anything, "nope").
		Return(db.AnalysisResult{}, pgx.ErrNoRows).Once()

	_, err := a.GetAnalysisResults(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestGetAnalysisResultsNotCompleted(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	pipeline.On("Result", mock.Anything, "running").
		Return(db.AnalysisResult{}, ErrJobNotCompleted).Once()

	_, err := a.GetAnalysisResults(context.Background(), "running")
	assert.ErrorIs(t, err, ErrJobNotCompleted)
	mockDB.AssertNotCalled(t, "GetAnalysisByJobID", mock.Anything, mock.Anything)
}

func TestGetUserAnalysisHistory(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	userID := uuid.Must(uuid.NewV7()).String()
	rows := []db.AnalysisResult{newTestResult(), newTestResult()}

	mockDB.On("ListAnalysesForUser", mock.Anything, mock.MatchedBy(func(arg db.ListAnalysesForUserParams) bool {
		return arg.Limit == 20 && arg.Offset == 0
	})).Return(rows, nil).Once()
	mockDB.On("CountAnalysesForUser", mock.Anything, mock.Anything).Return(int64(7), nil).Once()

	history, err := a.GetUserAnalysisHistory(context.Background(), userID, HistoryOptions{})
	require.NoError(t, err)
	assert.Len(t, history.Items, 2)
	assert.Equal(t, int64(7), history.Total)
	assert.Equal(t, 20, history.Limit)
	assert.Nil(t, history.Items[0].Sentiment, "payload omitted unless include_results is set")
}

func TestGetUserAnalysisHistoryIncludeResults(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	userID := uuid.Must(uuid.NewV7()).String()
	row := newTestResult(func(r *db.AnalysisResult) { r.Positive = 0.9 })

	mockDB.On("ListAnalysesForUser", mock.Anything, mock.Anything).
		Return([]db.AnalysisResult{row}, nil).Once()
	mockDB.On("CountAnalysesForUser", mock.Anything, mock.Anything).Return(int64(1), nil).Once()

	history, err := a.GetUserAnalysisHistory(context.Background(), userID, HistoryOptions{IncludeResults: true})
	require.NoError(t, err)
	require.Len(t, history.Items, 1)
	require.NotNil(t, history.Items[0].Sentiment)
	assert.Equal(t, 0.9, history.Items[0].Sentiment.Positive)
	assert.False(t, history.Items[0].FromCache)
}

func TestGetUserAnalysisHistoryFromCache(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	userID := uuid.Must(uuid.NewV7()).String()
	row := newTestResult(func(r *db.AnalysisResult) { r.Positive = 0.1 })

	// The cached copy diverges from the stored row; from_cache prefers it.
	cached := row
	cached.Positive = 0.8
	a.Results.SetByJobID(row.JobID, cached)

	mockDB.On("ListAnalysesForUser", mock.Anything, mock.Anything).
		Return([]db.AnalysisResult{row}, nil).Once()
	mockDB.On("CountAnalysesForUser", mock.Anything, mock.Anything).Return(int64(1), nil).Once()

	history, err := a.GetUserAnalysisHistory(context.Background(), userID, HistoryOptions{
		IncludeResults: true,
		FromCache:      true,
	})
	require.NoError(t, err)
	require.Len(t, history.Items, 1)
	assert.True(t, history.Items[0].FromCache)
	assert.Equal(t, 0.8, history.Items[0].Sentiment.Positive)
}

func TestGetUserAnalysisHistoryClampsLimit(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	userID := uuid.Must(uuid.NewV7()).String()
	mockDB.On("ListAnalysesForUser", mock.Anything, mock.MatchedBy(func(arg db.ListAnalysesForUserParams) bool {
		return arg.Limit == 100 && arg.Offset == 0
	})).Return([]db.AnalysisResult{}, nil).Once()
	mockDB.On("CountAnalysesForUser", mock.Anything, mock.Anything).Return(int64(0), nil).Once()

	history, err := a.GetUserAnalysisHistory(context.Background(), userID, HistoryOptions{
		Limit:  5000,
		Offset: -3,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, history.Limit)
	assert.Equal(t, 0, history.Offset)
	assert.NotNil(t, history.Items)
}

func TestGetUserAnalysisHistoryInvalidUserID(t *testing.T) {
	a := newTestApplication(new(analysisMockQuerier), new(analysisMockPipeline))
	defer a.Results.Close()

	_, err := a.GetUserAnalysisHistory(context.Background(), "nope", HistoryOptions{})
	assert.Error(t, err)
}

func TestGetUserAnalysisHistoryDbError(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	a := newTestApplication(mockDB, new(analysisMockPipeline))
	defer a.Results.Close()

	mockDB.On("ListAnalysesForUser", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused")).Once()

	_, err := a.GetUserAnalysisHistory(context.Background(), uuid.Must(uuid.NewV7()).String(), HistoryOptions{})
	assert.Error(t, err)
}

func TestEstimateSecondsScalesWithQueueDepth(t *testing.T) {
	mockDB := new(analysisMockQuerier)
	pipeline := new(analysisMockPipeline)
	a := newTestApplication(mockDB, pipeline)
	defer a.Results.Close()

	pipeline.On("QueueStats", mock.Anything).
		Return(QueueStats{Waiting: 4, Active: 2, MaxConcurrent: 2}).Once()
	assert.Equal(t, float64(avgJobSeconds)*4, a.estimateSeconds(context.Background()))

	pipeline.On("QueueStats", mock.Anything).
		Return(QueueStats{Waiting: 0, Active: 0, MaxConcurrent: 0}).Once()
	assert.Equal(t, float64(avgJobSeconds), a.estimateSeconds(context.Background()))
}

func TestUuidToStringRoundtrip(t *testing.T) {
	id := newTestUUID()
	s := UuidToString(id)
	parsed, err := parseUUID(s)
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseUUIDInvalid(t *testing.T) {
	_, err := parseUUID("not-a-uuid")
	assert.Error(t, err)

	got, err := parseUUID(UuidToString(pgtype.UUID{Bytes: uuid.Must(uuid.NewV7()), Valid: true}))
	assert.NoError(t, err)
	assert.True(t, got.Valid)
}
