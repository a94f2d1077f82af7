package testutil

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/mock"

	"github.com/crowdlens/crowdlens/db"
)

// MockQuerier is a testify mock implementing db.Querier.
type MockQuerier struct {
	mock.Mock
}

var _ db.Querier = (*MockQuerier)(nil)

func (m *MockQuerier) CountAnalyses(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuerier) CountAnalysesAfterTimestamp(ctx context.Context, analyzedAt pgtype.Timestamptz) (int64, error) {
	args := m.Called(ctx, analyzedAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuerier) CountAnalysesForUser(ctx context.Context, userID pgtype.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuerier) CountComments(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuerier) CountPosts(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuerier) CountUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuerier) DeleteAnalysesOlderThan(ctx context.Context, analyzedAt pgtype.Timestamptz) (int64, error) {
	args := m.Called(ctx, analyzedAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuerier) GetAnalysisByJobID(ctx context.Context, jobID string) (db.AnalysisResult, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(db.AnalysisResult), args.Error(1)
}

func (m *MockQuerier) GetLatestAnalysisForPost(ctx context.Context, arg db.GetLatestAnalysisForPostParams) (db.AnalysisResult, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(db.AnalysisResult), args.Error(1)
}

func (m *MockQuerier) GetPostByID(ctx context.Context, id pgtype.UUID) (db.Post, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(db.Post), args.Error(1)
}

func (m *MockQuerier) InsertAnalysisResult(ctx context.Context, arg db.InsertAnalysisResultParams) (db.AnalysisResult, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(db.AnalysisResult), args.Error(1)
}

func (m *MockQuerier) ListAnalysesForUser(ctx context.Context, arg db.ListAnalysesForUserParams) ([]db.AnalysisResult, error) {
	args := m.Called(ctx, arg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]db.AnalysisResult), args.Error(1)
}

func (m *MockQuerier) ListCommentsForPost(ctx context.Context, postID pgtype.UUID) ([]db.Comment, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]db.Comment), args.Error(1)
}
