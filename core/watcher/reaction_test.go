package watcher

import (
	"context"
	"errors"
	"testing"

	"github.com/adalundhe/ctxsync/core/commit"
	"github.com/adalundhe/ctxsync/core/pipeline"
	"github.com/stretchr/testify/mock"
)

type mockSynchronizer struct {
	mock.Mock
}

func (m *mockSynchronizer) Run(ctx context.Context) (*pipeline.ContextPayload, error) {
	args := m.Called(ctx)
	payload, _ := args.Get(0).(*pipeline.ContextPayload)
	return payload, args.Error(1)
}

type mockCommitter struct {
	mock.Mock
}

func (m *mockCommitter) CommitAll(ctx context.Context) (*commit.Result, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*commit.Result)
	return res, args.Error(1)
}

func TestDocumentReactionSyncsThenCommits(t *testing.T) {
	s := &mockSynchronizer{}
	c := &mockCommitter{}
	s.On("Run", mock.Anything).Return(&pipeline.ContextPayload{}, nil).Once()
	c.On("CommitAll", mock.Anything).Return(&commit.Result{Committed: true}, nil).Once()

	NewDocumentReaction(s, c, nil, nil).Trigger(context.Background(), "tasks")

	s.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestDocumentReactionSkipsCommitOnSyncFailure(t *testing.T) {
	s := &mockSynchronizer{}
	c := &mockCommitter{}
	s.On("Run", mock.Anything).Return(nil, errors.New("disk full")).Once()

	NewDocumentReaction(s, c, nil, nil).Trigger(context.Background(), "architecture")

	s.AssertExpectations(t)
	c.AssertNotCalled(t, "CommitAll", mock.Anything)
}

func TestDocumentReactionToleratesCommitFailure(t *testing.T) {
	s := &mockSynchronizer{}
	c := &mockCommitter{}
	s.On("Run", mock.Anything).Return(&pipeline.ContextPayload{}, nil).Twice()
	c.On("CommitAll", mock.Anything).Return(nil, errors.New("index.lock exists")).Once()
	c.On("CommitAll", mock.Anything).Return(&commit.Result{Committed: false}, nil).Once()

	r := NewDocumentReaction(s, c, nil, nil)
	r.Trigger(context.Background(), "progress")
	r.Trigger(context.Background(), "progress")

	s.AssertExpectations(t)
	c.AssertExpectations(t)
}
