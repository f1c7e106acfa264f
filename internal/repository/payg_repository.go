package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/indexer-coordinator/engine/internal/models"
	appErr "github.com/indexer-coordinator/engine/pkg/errors"
)

type PaygRepository interface {
	BaseRepository[models.Payg]
	Upsert(ctx context.Context, p *models.Payg) error
}

type paygRepository struct {
	BaseRepository[models.Payg]
	db *gorm.DB
}

func NewPaygRepository(db *gorm.DB) PaygRepository {
	return &paygRepository{BaseRepository: NewBaseRepository[models.Payg](db, "payg"), db: db}
}

// Upsert replaces the whole policy stored under p.ID, creating it if absent.
func (r *paygRepository) Upsert(ctx context.Context, p *models.Payg) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"price", "expiration", "threshold", "overflow", "token", "updated_at"}),
	}).Create(p).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "upsert payg failed")
	}
	return nil
}
