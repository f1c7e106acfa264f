package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/indexer-coordinator/engine/internal/metadata"
	"github.com/indexer-coordinator/engine/internal/models"
	"github.com/indexer-coordinator/engine/internal/repository"
	appErr "github.com/indexer-coordinator/engine/pkg/errors"
	"github.com/indexer-coordinator/engine/pkg/logger"
)

const (
	TypeRefreshMetadata    = "project:refresh-metadata"
	TypeRefreshAllMetadata = "project:refresh-all-metadata"
)

// RefreshPayload is the payload of a single project refresh task.
type RefreshPayload struct {
	ProjectID string `json:"project_id"`
}

// NewRefreshMetadataTask builds a refresh task for one project.
func NewRefreshMetadataTask(projectID string) (*asynq.Task, error) {
	if projectID == "" {
		return nil, appErr.New(appErr.CodeInvalid, "project id is required")
	}
	pb, err := json.Marshal(RefreshPayload{ProjectID: projectID})
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "encode refresh payload failed")
	}
	return asynq.NewTask(TypeRefreshMetadata, pb, asynq.MaxRetry(3), asynq.Timeout(time.Minute)), nil
}

// NewRefreshAllMetadataTask builds the fan-out task the scheduler enqueues periodically.
func NewRefreshAllMetadataTask() *asynq.Task {
	return asynq.NewTask(TypeRefreshAllMetadata, nil, asynq.MaxRetry(0))
}

// Enqueuer is the subset of *asynq.Client the tasks package needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RefreshEnqueuer schedules refresh tasks. Duplicate refreshes for the same project
// within the uniqueness window are dropped.
type RefreshEnqueuer struct {
	client Enqueuer
	unique time.Duration
}

func NewRefreshEnqueuer(client Enqueuer, unique time.Duration) *RefreshEnqueuer {
	return &RefreshEnqueuer{client: client, unique: unique}
}

func (e *RefreshEnqueuer) EnqueueRefresh(ctx context.Context, projectID string) error {
	task, err := NewRefreshMetadataTask(projectID)
	if err != nil {
		return err
	}
	var opts []asynq.Option
	if e.unique > 0 {
		opts = append(opts, asynq.Unique(e.unique))
	}
	if _, err := e.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return appErr.Wrap(err, appErr.CodeUnavailable, "enqueue metadata refresh failed").WithMeta("id", projectID)
	}
	return nil
}

// ProjectLister is the read side of the project store used by refresh tasks.
type ProjectLister interface {
	GetByID(ctx context.Context, id any, dest *models.Project) error
	List(ctx context.Context, filter repository.ProjectFilter) ([]models.Project, error)
}

// MetadataTaskHandler refreshes cached metadata snapshots.
type MetadataTaskHandler struct {
	projects ProjectLister
	fetcher  metadata.Fetcher
	cache    metadata.Cache
	enqueue  *RefreshEnqueuer
}

func NewMetadataTaskHandler(projects ProjectLister, fetcher metadata.Fetcher, cache metadata.Cache, enqueue *RefreshEnqueuer) *MetadataTaskHandler {
	return &MetadataTaskHandler{projects: projects, fetcher: fetcher, cache: cache, enqueue: enqueue}
}

// Register binds the handler's task types on mux.
func (h *MetadataTaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeRefreshMetadata, h.HandleRefresh)
	mux.HandleFunc(TypeRefreshAllMetadata, h.HandleRefreshAll)
}

func (h *MetadataTaskHandler) HandleRefresh(ctx context.Context, t *asynq.Task) error {
	var p RefreshPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid refresh task payload", zap.Error(err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	log := logger.L().With(zap.String("project_id", p.ProjectID))

	var proj models.Project
	if err := h.projects.GetByID(ctx, p.ProjectID, &proj); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			log.Info("project gone, dropping refresh")
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		log.Error("get project failed", zap.Error(err))
		return err
	}

	m, err := h.fetcher.Fetch(ctx, &proj)
	if err != nil {
		log.Warn("metadata fetch failed", zap.Error(err))
		line := fmt.Sprintf("%s metadata refresh failed: %v", time.Now().UTC().Format(time.RFC3339), err)
		if lerr := h.cache.AppendLog(ctx, proj.ID, line); lerr != nil {
			log.Error("append project log failed", zap.Error(lerr))
		}
		if appErr.IsCode(err, appErr.CodeInvalid) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if err := h.cache.Set(ctx, proj.ID, m); err != nil {
		log.Error("cache metadata failed", zap.Error(err))
		return err
	}
	log.Debug("metadata refreshed", zap.Int64("height", m.LastProcessedHeight))
	return nil
}

// HandleRefreshAll enqueues one refresh per project that has a node endpoint.
func (h *MetadataTaskHandler) HandleRefreshAll(ctx context.Context, _ *asynq.Task) error {
	projects, err := h.projects.List(ctx, repository.ProjectFilter{})
	if err != nil {
		logger.L().Error("list projects for refresh failed", zap.Error(err))
		return err
	}
	var queued int
	for _, p := range projects {
		if p.NodeEndpoint == "" {
			continue
		}
		if err := h.enqueue.EnqueueRefresh(ctx, p.ID); err != nil {
			logger.L().Warn("enqueue refresh failed", zap.String("project_id", p.ID), zap.Error(err))
			continue
		}
		queued++
	}
	logger.L().Info("metadata refresh fan-out", zap.Int("projects", len(projects)), zap.Int("queued", queued))
	return nil
}
