package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/crowdlens/crowdlens/db"
)

// stableThreshold is the sentiment delta below which a trend reads "stable".
const stableThreshold = 0.02

// SentimentComparison is one analysis's sentiment breakdown, reported in the
// caller's input order.
type SentimentComparison struct {
	JobID    string  `json:"job_id"`
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// CommentCount is one analysis's total comment count.
type CommentCount struct {
	JobID string `json:"job_id"`
	Count int32  `json:"count"`
}

// TrendInfo compares the two most recent analyses by analyzedAt. The numeric
// deltas are latest minus previous; without two valid timestamps only the
// descriptive labels are set.
type TrendInfo struct {
	Sentiment        string   `json:"sentiment"`
	Engagement       string   `json:"engagement"`
	SentimentChange  *float64 `json:"sentiment_change,omitempty"`
	EngagementChange *float64 `json:"engagement_change,omitempty"`
}

// Comparison aggregates several completed analyses.
type Comparison struct {
	SentimentComparison []SentimentComparison `json:"sentiment_comparison"`
	AvgSentiment        SentimentBreakdown    `json:"avg_sentiment"`
	CommentCounts       []CommentCount        `json:"comment_counts"`
	AvgComments         float64               `json:"avg_comments"`
	Trends              TrendInfo             `json:"trends"`
	TotalAnalyses       int                   `json:"total_analyses"`
	ComparedAt          time.Time             `json:"compared_at"`
	Errors              []string              `json:"errors,omitempty"`
}

// CompareAnalyses fetches each job's result and computes aggregate sentiment,
// comment counts and the trend between the two most recent analyses. Job ids
// that cannot be resolved to a completed result are excluded from every
// aggregate and reported in Errors.
func (a *Application) CompareAnalyses(ctx context.Context, jobIDs []string) (Comparison, error) {
	if len(jobIDs) == 0 {
		return Comparison{}, errors.New("at least one job id is required")
	}

	comparison := Comparison{ComparedAt: time.Now().UTC()}

	var results []db.AnalysisResult
	for _, jobID := range jobIDs {
		result, err := a.GetAnalysisResults(ctx, jobID)
		if err != nil {
			log(ctx).Warn("Excluding unresolvable analysis from comparison", "job_id", jobID, "error", err)
			comparison.Errors = append(comparison.Errors, fmt.Sprintf("%s: %v", jobID, err))
			continue
		}
		results = append(results, result)
	}
	comparison.TotalAnalyses = len(results)

	var sumPos, sumNeg, sumNeu float64
	withSentiment := 0
	var sumComments int64
	for _, r := range results {
		comparison.SentimentComparison = append(comparison.SentimentComparison, SentimentComparison{
			JobID:    r.JobID,
			Positive: r.Positive,
			Negative: r.Negative,
			Neutral:  r.Neutral,
		})
		comparison.CommentCounts = append(comparison.CommentCounts, CommentCount{
			JobID: r.JobID,
			Count: r.CommentCount,
		})
		sumComments += int64(r.CommentCount)

		// A result with an all-zero breakdown carries no sentiment data and
		// is excluded from the average rather than dragging it toward zero.
		if r.Positive != 0 || r.Negative != 0 || r.Neutral != 0 {
			sumPos += r.Positive
			sumNeg += r.Negative
			sumNeu += r.Neutral
			withSentiment++
		}
	}

	if withSentiment > 0 {
		comparison.AvgSentiment = SentimentBreakdown{
			Positive: sumPos / float64(withSentiment),
			Negative: sumNeg / float64(withSentiment),
			Neutral:  sumNeu / float64(withSentiment),
		}
	}
	if len(results) > 0 {
		comparison.AvgComments = float64(sumComments) / float64(len(results))
	}

	comparison.Trends = computeTrends(results)
	return comparison, nil
}

// computeTrends orders analyses chronologically by analyzedAt and compares
// the latest against the one before it, ignoring anything older.
func computeTrends(results []db.AnalysisResult) TrendInfo {
	var timed []db.AnalysisResult
	for _, r := range results {
		if r.AnalyzedAt.Valid {
			timed = append(timed, r)
		}
	}
	if len(timed) < 2 {
		return TrendInfo{Sentiment: "insufficient data", Engagement: "insufficient data"}
	}

	sort.Slice(timed, func(i, j int) bool {
		return timed[i].AnalyzedAt.Time.Before(timed[j].AnalyzedAt.Time)
	})
	latest := timed[len(timed)-1]
	previous := timed[len(timed)-2]

	sentimentChange := latest.Positive - previous.Positive
	engagementChange := float64(latest.CommentCount - previous.CommentCount)

	trends := TrendInfo{
		SentimentChange:  &sentimentChange,
		EngagementChange: &engagementChange,
	}

	switch {
	case math.Abs(sentimentChange) < stableThreshold:
		trends.Sentiment = "stable"
	case sentimentChange > 0:
		trends.Sentiment = "improving"
	default:
		trends.Sentiment = "declining"
	}

	switch {
	case math.Abs(engagementChange) < 1:
		trends.Engagement = "stable"
	case engagementChange > 0:
		trends.Engagement = "growing"
	default:
		trends.Engagement = "declining"
	}

	return trends
}
