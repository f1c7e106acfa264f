package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/indexer-coordinator/engine/internal/models"
	"github.com/indexer-coordinator/engine/internal/projectconfig"
	appErr "github.com/indexer-coordinator/engine/pkg/errors"
)

// ProjectFilter narrows List results. Zero fields match everything.
type ProjectFilter struct {
	ProjectType models.ProjectType
	Status      *int
}

// MutateFunc receives the locked current record and returns the record to store.
type MutateFunc func(current *models.Project) (*models.Project, error)

type ProjectRepository interface {
	BaseRepository[models.Project]
	List(ctx context.Context, filter ProjectFilter) ([]models.Project, error)
	Mutate(ctx context.Context, id string, fn MutateFunc) (*models.Project, error)
	UpdateStatus(ctx context.Context, id string, status int) error
}

type projectRepository struct {
	BaseRepository[models.Project]
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{BaseRepository: NewBaseRepository[models.Project](db, "project"), db: db}
}

// Create hydrates p and inserts it. On success p holds the stored record.
// Project type errors from hydration are returned unwrapped.
func (r *projectRepository) Create(ctx context.Context, p *models.Project) error {
	hydrated, err := projectconfig.Hydrate(p)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Project{}).Where("id = ?", hydrated.ID).Count(&n).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "check project existence failed")
		}
		if n > 0 {
			return appErr.New(appErr.CodeAlreadyExists, fmt.Sprintf("project %s already exists", hydrated.ID)).WithMeta("id", hydrated.ID)
		}
		return NewBaseRepository[models.Project](tx, "project").Create(ctx, hydrated)
	})
	if err != nil {
		return err
	}
	*p = *hydrated
	return nil
}

func (r *projectRepository) List(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	q := r.db.WithContext(ctx).Model(&models.Project{})
	if filter.ProjectType != "" {
		q = q.Where("project_type = ?", filter.ProjectType)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	var out []models.Project
	if err := q.Order("created_at DESC").Order("id").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list projects failed")
	}
	return out, nil
}

// Mutate runs a read-modify-write on one project under a row lock, so concurrent
// writers to the same id are serialized. The id and creation time cannot be changed by fn.
func (r *projectRepository) Mutate(ctx context.Context, id string, fn MutateFunc) (*models.Project, error) {
	var out *models.Project
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cur, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appErr.New(appErr.CodeNotFound, fmt.Sprintf("project %s not found", id)).WithMeta("id", id)
			}
			return appErr.Wrap(err, appErr.CodeInternal, "lock project failed")
		}

		next, err := fn(&cur)
		if err != nil {
			return err
		}
		next.ID = cur.ID
		next.CreatedAt = cur.CreatedAt
		if err := tx.Save(next).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "save project failed")
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *projectRepository) UpdateStatus(ctx context.Context, id string, status int) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update project status failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, fmt.Sprintf("project %s not found", id)).WithMeta("id", id)
	}
	return nil
}
