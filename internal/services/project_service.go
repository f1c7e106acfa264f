package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/indexer-coordinator/engine/internal/metadata"
	"github.com/indexer-coordinator/engine/internal/models"
	"github.com/indexer-coordinator/engine/internal/projectconfig"
	"github.com/indexer-coordinator/engine/internal/repository"
	appErr "github.com/indexer-coordinator/engine/pkg/errors"
	"github.com/indexer-coordinator/engine/pkg/logger"
)

type ProjectService interface {
	// Project records
	CreateProject(ctx context.Context, p *models.Project) (*models.Project, error)
	GetProject(ctx context.Context, id string) (*models.Project, error)
	GetProjectDetails(ctx context.Context, id string) (*models.ProjectDetails, error)
	ListProjects(ctx context.Context, filter repository.ProjectFilter) ([]models.Project, error)
	UpdateStatus(ctx context.Context, id string, status int) error
	DeleteProject(ctx context.Context, id string) error

	// Config layers
	UpdateConfig(ctx context.Context, id string, input *UpdateConfigInput) (*models.Project, error)
	UpdateProjectConfig(ctx context.Context, id string, cfg models.ProjectConfig) (*models.Project, error)
	ResolveDefaults(t models.ProjectType) (projectconfig.Defaults, error)

	// Runtime
	ProjectLogs(ctx context.Context, id string, limit int) ([]models.LogEntry, error)
}

// UpdateConfigInput carries replacement layers. A nil layer is left as stored.
type UpdateConfigInput struct {
	Base     *models.ProjectBaseConfig
	Advanced *models.ProjectAdvancedConfig
}

// Refresher schedules a metadata refresh for a project.
type Refresher interface {
	EnqueueRefresh(ctx context.Context, projectID string) error
}

type projectService struct {
	projectRepo repository.ProjectRepository
	paygRepo    repository.PaygRepository
	cache       metadata.Cache
	refresher   Refresher
}

// NewProjectService wires the project service. cache and refresher may be nil, in which
// case details carry no metadata and no refresh is scheduled.
func NewProjectService(projectRepo repository.ProjectRepository, paygRepo repository.PaygRepository, cache metadata.Cache, refresher Refresher) ProjectService {
	return &projectService{projectRepo: projectRepo, paygRepo: paygRepo, cache: cache, refresher: refresher}
}

var _ ProjectService = (*projectService)(nil)

// CreateProject hydrates and stores p, then schedules its first metadata refresh.
func (s *projectService) CreateProject(ctx context.Context, p *models.Project) (*models.Project, error) {
	if p == nil || p.ID == "" {
		return nil, appErr.New(appErr.CodeInvalid, "project id is required")
	}
	logger.L().Info("create project called", zap.String("project_id", p.ID), zap.String("project_type", string(p.ProjectType)))

	rec := p.Clone()
	if err := s.projectRepo.Create(ctx, rec); err != nil {
		return nil, err
	}

	if s.refresher != nil && rec.NodeEndpoint != "" {
		if err := s.refresher.EnqueueRefresh(ctx, rec.ID); err != nil {
			logger.L().Warn("enqueue metadata refresh failed", zap.String("project_id", rec.ID), zap.Error(err))
		}
	}

	logger.L().Info("project created", zap.String("project_id", rec.ID))
	return rec, nil
}

func (s *projectService) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProjectDetails assembles the detail view. Missing metadata or PAYG leave the
// corresponding field nil; a cache outage is logged and does not fail the read.
func (s *projectService) GetProjectDetails(ctx context.Context, id string) (*models.ProjectDetails, error) {
	p, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	details := &models.ProjectDetails{Project: p}

	if s.cache != nil {
		m, err := s.cache.Get(ctx, id)
		if err != nil {
			logger.L().Warn("metadata cache read failed", zap.String("project_id", id), zap.Error(err))
		}
		details.Metadata = m
	}

	var payg models.Payg
	switch err := s.paygRepo.GetByID(ctx, id, &payg); {
	case err == nil:
		details.Payg = &payg
	case appErr.IsCode(err, appErr.CodeNotFound):
	default:
		return nil, err
	}
	return details, nil
}

func (s *projectService) ListProjects(ctx context.Context, filter repository.ProjectFilter) ([]models.Project, error) {
	logger.L().Debug("list projects", zap.String("project_type", string(filter.ProjectType)))
	return s.projectRepo.List(ctx, filter)
}

func (s *projectService) UpdateStatus(ctx context.Context, id string, status int) error {
	logger.L().Info("update project status", zap.String("project_id", id), zap.Int("status", status))
	return s.projectRepo.UpdateStatus(ctx, id, status)
}

// UpdateConfig replaces the base and/or advanced layers. Subquery projects get their
// runtime config regenerated from the new layers in the same locked write.
func (s *projectService) UpdateConfig(ctx context.Context, id string, input *UpdateConfigInput) (*models.Project, error) {
	if input == nil || (input.Base == nil && input.Advanced == nil) {
		return nil, appErr.New(appErr.CodeInvalid, "baseConfig or advancedConfig is required")
	}
	logger.L().Info("update project config", zap.String("project_id", id),
		zap.Bool("base", input.Base != nil), zap.Bool("advanced", input.Advanced != nil))

	p, err := s.projectRepo.Mutate(ctx, id, func(cur *models.Project) (*models.Project, error) {
		return projectconfig.ApplyLayers(cur, input.Base, input.Advanced)
	})
	if err != nil {
		return nil, err
	}
	logger.L().Info("project config updated", zap.String("project_id", id))
	return p, nil
}

// UpdateProjectConfig replaces the runtime config. The variant must match the stored type.
// For Subquery projects the base and advanced layers are rewritten from the new config.
func (s *projectService) UpdateProjectConfig(ctx context.Context, id string, cfg models.ProjectConfig) (*models.Project, error) {
	logger.L().Info("replace project runtime config", zap.String("project_id", id))

	return s.projectRepo.Mutate(ctx, id, func(cur *models.Project) (*models.Project, error) {
		next := cur.Clone()
		next.ProjectConfig = nil
		if cfg != nil {
			next.ProjectConfig = cfg.CloneConfig()
		}
		out, err := projectconfig.Hydrate(next)
		if err != nil {
			return nil, err
		}
		if sq, ok := out.ProjectConfig.(*models.SubqueryConfig); ok {
			out.BaseConfig = sq.Base()
			out.AdvancedConfig = sq.Advanced()
		}
		return out, nil
	})
}

func (s *projectService) ResolveDefaults(t models.ProjectType) (projectconfig.Defaults, error) {
	return projectconfig.ResolveDefaults(t)
}

func (s *projectService) ProjectLogs(ctx context.Context, id string, limit int) ([]models.LogEntry, error) {
	if _, err := s.GetProject(ctx, id); err != nil {
		return nil, err
	}
	if s.cache == nil {
		return []models.LogEntry{}, nil
	}
	return s.cache.Logs(ctx, id, limit)
}

// DeleteProject removes the project record and its cached runtime state. The PAYG
// policy is independent and left in place.
func (s *projectService) DeleteProject(ctx context.Context, id string) error {
	logger.L().Info("delete project", zap.String("project_id", id))
	if err := s.projectRepo.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			logger.L().Warn("clear metadata cache failed", zap.String("project_id", id), zap.Error(err))
		}
	}
	logger.L().Info("project deleted", zap.String("project_id", id))
	return nil
}
