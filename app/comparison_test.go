package app

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdlens/crowdlens/db"
)

func comparisonTestApp(results ...db.AnalysisResult) *Application {
	a := newTestApplication(new(analysisMockQuerier), new(analysisMockPipeline))
	for _, r := range results {
		a.Results.SetByJobID(r.JobID, r)
	}
	return a
}

func analyzedAt(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func TestCompareAnalysesEmptyInput(t *testing.T) {
	a := comparisonTestApp()
	defer a.Results.Close()

	_, err := a.CompareAnalyses(context.Background(), nil)
	assert.Error(t, err)
}

func TestCompareAnalysesAverages(t *testing.T) {
	base := time.Now().UTC()
	r1 := newTestResult(func(r *db.AnalysisResult) {
		r.Positive, r.Negative, r.Neutral = 0.8, 0.1, 0.1
		r.CommentCount = 10
		r.AnalyzedAt = analyzedAt(base.Add(-2 * time.Hour))
	})
	r2 := newTestResult(func(r *db.AnalysisResult) {
		r.Positive, r.Negative, r.Neutral = 0.4, 0.3, 0.3
		r.CommentCount = 30
		r.AnalyzedAt = analyzedAt(base.Add(-time.Hour))
	})

	a := comparisonTestApp(r1, r2)
	defer a.Results.Close()

	comparison, err := a.CompareAnalyses(context.Background(), []string{r1.JobID, r2.JobID})
	require.NoError(t, err)

	assert.Equal(t, 2, comparison.TotalAnalyses)
	assert.Empty(t, comparison.Errors)
	assert.InDelta(t, 0.6, comparison.AvgSentiment.Positive, 1e-9)
	assert.InDelta(t, 0.2, comparison.AvgSentiment.Negative, 1e-9)
	assert.InDelta(t, 0.2, comparison.AvgSentiment.Neutral, 1e-9)
	assert.Equal(t, 20.0, comparison.AvgComments)
	require.Len(t, comparison.SentimentComparison, 2)
	assert.Equal(t, r1.JobID, comparison.SentimentComparison[0].JobID)
	require.Len(t, comparison.CommentCounts, 2)
	assert.Equal(t, int32(10), comparison.CommentCounts[0].Count)
	assert.False(t, comparison.ComparedAt.IsZero())
}

func TestCompareAnalysesExcludesZeroBreakdownsFromAverage(t *testing.T) {
	r1 := newTestResult(func(r *db.AnalysisResult) {
		r.Positive, r.Negative, r.Neutral = 0.6, 0.2, 0.2
		r.CommentCount = 10
	})
	empty := newTestResult(func(r *db.AnalysisResult) {
		r.Positive, r.Negative, r.Neutral = 0, 0, 0
		r.CommentCount = 6
	})

	a := comparisonTestApp(r1, empty)
	defer a.Results.Close()

	comparison, err := a.CompareAnalyses(context.Background(), []string{r1.JobID, empty.JobID})
	require.NoError(t, err)

	// The all-zero breakdown is excluded from the sentiment average
	// but still counts toward comment aggregates.
	assert.InDelta(t, 0.6, comparison.AvgSentiment.Positive, 1e-9)
	assert.Equal(t, 8.0, comparison.AvgComments)
	assert.Len(t, comparison.SentimentComparison, 2)
}

func TestCompareAnalysesPartialFailure(t *testing.T) {
	r1 := newTestResult()
	a := comparisonTestApp(r1)
	defer a.Results.Close()

	mockDB := a.DB.(*analysisMockQuerier)
	pipeline := a.Pipeline.(*analysisMockPipeline)
	pipeline.On("Result", context.Background(), "missing-job").
		Return(db.AnalysisResult{}, ErrJobNotFound).Once()
	mockDB.On("GetAnalysisByJobID", context.Background(), "missing-job").
		Return(db.AnalysisResult{}, ErrJobNotFound).Maybe()

	comparison, err := a.CompareAnalyses(context.Background(), []string{r1.JobID, "missing-job"})
	require.NoError(t, err, "partial results beat total failure")

	assert.Equal(t, 1, comparison.TotalAnalyses)
	require.Len(t, comparison.Errors, 1)
	assert.Contains(t, comparison.Errors[0], "missing-job")
	assert.Len(t, comparison.SentimentComparison, 1)
}

func TestCompareAnalysesTrendDeclining(t *testing.T) {
	base := time.Now().UTC()
	// Input order deliberately scrambled: trends follow analyzedAt, not input order.
	oldest := newTestResult(func(r *db.AnalysisResult) {
		r.Positive = 0.2
		r.CommentCount = 5
		r.AnalyzedAt = analyzedAt(base.Add(-3 * time.Hour))
	})
	previous := newTestResult(func(r *db.AnalysisResult) {
		r.Positive = 0.75
		r.CommentCount = 20
		r.AnalyzedAt = analyzedAt(base.Add(-2 * time.Hour))
	})
	latest := newTestResult(func(r *db.AnalysisResult) {
		r.Positive = 0.70
		r.CommentCount = 30
		r.AnalyzedAt = analyzedAt(base.Add(-time.Hour))
	})

	a := comparisonTestApp(oldest, previous, latest)
	defer a.Results.Close()

	comparison, err := a.CompareAnalyses(context.Background(), []string{latest.JobID, oldest.JobID, previous.JobID})
	require.NoError(t, err)

	trends := comparison.Trends
	assert.Equal(t, "declining", trends.Sentiment)
	require.NotNil(t, trends.SentimentChange)
	assert.InDelta(t, -0.05, *trends.SentimentChange, 1e-9)
	assert.Equal(t, "growing", trends.Engagement)
	require.NotNil(t, trends.EngagementChange)
	assert.Equal(t, 10.0, *trends.EngagementChange)
}

func TestCompareAnalysesTrendStable(t *testing.T) {
	base := time.Now().UTC()
	previous := newTestResult(func(r *db.AnalysisResult) {
		r.Positive = 0.50
		r.CommentCount = 12
		r.AnalyzedAt = analyzedAt(base.Add(-2 * time.Hour))
	})
	latest := newTestResult(func(r *db.AnalysisResult) {
		r.Positive = 0.51 // within the stable threshold
		r.CommentCount = 12
		r.AnalyzedAt = analyzedAt(base.Add(-time.Hour))
	})

	a := comparisonTestApp(previous, latest)
	defer a.Results.Close()

	comparison, err := a.CompareAnalyses(context.Background(), []string{previous.JobID, latest.JobID})
	require.NoError(t, err)

	assert.Equal(t, "stable", comparison.Trends.Sentiment)
	assert.Equal(t, "stable", comparison.Trends.Engagement)
}

func TestCompareAnalysesTrendImproving(t *testing.T) {
	base := time.Now().UTC()
	previous := newTestResult(func(r *db.AnalysisResult) {
		r.Positive = 0.3
		r.CommentCount = 20
		r.AnalyzedAt = analyzedAt(base.Add(-2 * time.Hour))
	})
	latest := newTestResult(func(r *db.AnalysisResult) {
		r.Positive = 0.6
		r.CommentCount = 8
		r.AnalyzedAt = analyzedAt(base.Add(-time.Hour))
	})

	a := comparisonTestApp(previous, latest)
	defer a.Results.Close()

	comparison, err := a.CompareAnalyses(context.Background(), []string{previous.JobID, latest.JobID})
	require.NoError(t, err)

	assert.Equal(t, "improving", comparison.Trends.Sentiment)
	assert.Equal(t, "declining", comparison.Trends.Engagement)
}

func TestCompareAnalysesInsufficientDataForTrends(t *testing.T) {
	only := newTestResult()
	noTimestamp := newTestResult(func(r *db.AnalysisResult) {
		r.AnalyzedAt = pgtype.Timestamptz{}
	})

	a := comparisonTestApp(only, noTimestamp)
	defer a.Results.Close()

	comparison, err := a.CompareAnalyses(context.Background(), []string{only.JobID, noTimestamp.JobID})
	require.NoError(t, err)

	// Only one result has a valid timestamp, so no trend can be computed.
	assert.Equal(t, "insufficient data", comparison.Trends.Sentiment)
	assert.Equal(t, "insufficient data", comparison.Trends.Engagement)
	assert.Nil(t, comparison.Trends.SentimentChange)
	assert.Nil(t, comparison.Trends.EngagementChange)
}
