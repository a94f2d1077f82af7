package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/crowdlens/crowdlens/app"
	"github.com/crowdlens/crowdlens/db"
)

// MockPipeline is a testify mock implementing app.Pipeline.
type MockPipeline struct {
	mock.Mock
}

var _ app.Pipeline = (*MockPipeline)(nil)

func (m *MockPipeline) Submit(ctx context.Context, job app.AnalysisJob) (string, bool, error) {
	args := m.Called(ctx, job)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockPipeline) Status(ctx context.Context, jobID string) (app.JobStatus, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(app.JobStatus), args.Error(1)
}

func (m *MockPipeline) Result(ctx context.Context, jobID string) (db.AnalysisResult, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(db.AnalysisResult), args.Error(1)
}

func (m *MockPipeline) ActiveJobID(ctx context.Context, fingerprint string) (string, bool) {
	args := m.Called(ctx, fingerprint)
	return args.String(0), args.Bool(1)
}

func (m *MockPipeline) QueueStats(ctx context.Context) app.QueueStats {
	args := m.Called(ctx)
	return args.Get(0).(app.QueueStats)
}

func (m *MockPipeline) Steps() []app.PipelineStep {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]app.PipelineStep)
}

func (m *MockPipeline) Cleanup(ctx context.Context, olderThan time.Duration) int {
	args := m.Called(ctx, olderThan)
	return args.Int(0)
}

// MockAnalyzer is a testify mock implementing app.Analyzer.
type MockAnalyzer struct {
	mock.Mock
}

var _ app.Analyzer = (*MockAnalyzer)(nil)

func (m *MockAnalyzer) Analyze(ctx context.Context, post db.Post, comments []db.Comment) (app.AnalyzerResult, error) {
	args := m.Called(ctx, post, comments)
	return args.Get(0).(app.AnalyzerResult), args.Error(1)
}
