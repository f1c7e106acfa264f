package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/indexer-coordinator/engine/internal/models"
	"github.com/indexer-coordinator/engine/internal/repository"
	appErr "github.com/indexer-coordinator/engine/pkg/errors"
	"github.com/indexer-coordinator/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests (required by tasks)
	_, err := logger.Init("info", "json")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

// Mock implementations
type mockProjects struct {
	mock.Mock
}

func (m *mockProjects) GetByID(ctx context.Context, id any, dest *models.Project) error {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		*dest = *v.(*models.Project)
	}
	return args.Error(1)
}

func (m *mockProjects) List(ctx context.Context, filter repository.ProjectFilter) ([]models.Project, error) {
	args := m.Called(ctx, filter)
	if v := args.Get(0); v != nil {
		return v.([]models.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, p *models.Project) (*models.Metadata, error) {
	args := m.Called(ctx, p.ID)
	if v := args.Get(0); v != nil {
		return v.(*models.Metadata), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, id string) (*models.Metadata, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Metadata), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCache) Set(ctx context.Context, id string, md *models.Metadata) error {
	return m.Called(ctx, id, md).Error(0)
}

func (m *mockCache) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCache) AppendLog(ctx context.Context, id, line string) error {
	return m.Called(ctx, id, line).Error(0)
}

func (m *mockCache) Logs(ctx context.Context, id string, limit int) ([]models.LogEntry, error) {
	args := m.Called(ctx, id, limit)
	if v := args.Get(0); v != nil {
		return v.([]models.LogEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	var p RefreshPayload
	_ = json.Unmarshal(task.Payload(), &p)
	args := m.Called(task.Type(), p.ProjectID)
	return &asynq.TaskInfo{}, args.Error(0)
}

func refreshTask(t *testing.T, id string) *asynq.Task {
	t.Helper()
	task, err := NewRefreshMetadataTask(id)
	require.NoError(t, err)
	return task
}

func TestHandleRefreshCachesSnapshot(t *testing.T) {
	ctx := context.Background()
	projects, fetcher, cache := &mockProjects{}, &mockFetcher{}, &mockCache{}
	h := NewMetadataTaskHandler(projects, fetcher, cache, nil)

	proj := &models.Project{ID: "QmA", NodeEndpoint: "http://node"}
	snap := &models.Metadata{LastProcessedHeight: 10}
	projects.On("GetByID", mock.Anything, "QmA").Return(proj, nil)
	fetcher.On("Fetch", mock.Anything, "QmA").Return(snap, nil)
	cache.On("Set", mock.Anything, "QmA", snap).Return(nil)

	require.NoError(t, h.HandleRefresh(ctx, refreshTask(t, "QmA")))
	projects.AssertExpectations(t)
	fetcher.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestHandleRefreshFetchFailureLogs(t *testing.T) {
	ctx := context.Background()
	projects, fetcher, cache := &mockProjects{}, &mockFetcher{}, &mockCache{}
	h := NewMetadataTaskHandler(projects, fetcher, cache, nil)

	projects.On("GetByID", mock.Anything, "QmA").Return(&models.Project{ID: "QmA", NodeEndpoint: "http://node"}, nil)
	fetchErr := appErr.New(appErr.CodeUnavailable, "node metadata unreachable")
	fetcher.On("Fetch", mock.Anything, "QmA").Return(nil, fetchErr)
	cache.On("AppendLog", mock.Anything, "QmA", mock.MatchedBy(func(line string) bool {
		return len(line) > 0
	})).Return(nil)

	err := h.HandleRefresh(ctx, refreshTask(t, "QmA"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry), "unavailable node should be retried")
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	cache.AssertExpectations(t)
}

func TestHandleRefreshSkipsRetry(t *testing.T) {
	ctx := context.Background()
	projects, fetcher, cache := &mockProjects{}, &mockFetcher{}, &mockCache{}
	h := NewMetadataTaskHandler(projects, fetcher, cache, nil)

	projects.On("GetByID", mock.Anything, "gone").Return(nil, appErr.New(appErr.CodeNotFound, "project gone not found"))
	err := h.HandleRefresh(ctx, refreshTask(t, "gone"))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.HandleRefresh(ctx, asynq.NewTask(TypeRefreshMetadata, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestHandleRefreshAllFansOut(t *testing.T) {
	ctx := context.Background()
	projects, enq := &mockProjects{}, &mockEnqueuer{}
	h := NewMetadataTaskHandler(projects, &mockFetcher{}, &mockCache{}, NewRefreshEnqueuer(enq, time.Minute))

	projects.On("List", mock.Anything, repository.ProjectFilter{}).Return([]models.Project{
		{ID: "a", NodeEndpoint: "http://a"},
		{ID: "b"},
		{ID: "c", NodeEndpoint: "http://c"},
	}, nil)
	enq.On("EnqueueContext", TypeRefreshMetadata, "a").Return(nil).Once()
	enq.On("EnqueueContext", TypeRefreshMetadata, "c").Return(asynq.ErrDuplicateTask).Once()

	require.NoError(t, h.HandleRefreshAll(ctx, NewRefreshAllMetadataTask()))
	enq.AssertExpectations(t)
	enq.AssertNotCalled(t, "EnqueueContext", TypeRefreshMetadata, "b")
}

func TestRefreshEnqueuerErrors(t *testing.T) {
	enq := &mockEnqueuer{}
	e := NewRefreshEnqueuer(enq, 0)

	assert.True(t, appErr.IsCode(e.EnqueueRefresh(context.Background(), ""), appErr.CodeInvalid))

	enq.On("EnqueueContext", TypeRefreshMetadata, "a").Return(errors.New("redis down"))
	err := e.EnqueueRefresh(context.Background(), "a")
	assert.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
}
