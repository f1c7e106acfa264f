package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/indexer-coordinator/engine/internal/models"
	"github.com/indexer-coordinator/engine/internal/projectconfig"
	"github.com/indexer-coordinator/engine/internal/repository"
	"github.com/indexer-coordinator/engine/pkg/logger"
)

type PaygService interface {
	GetPayg(ctx context.Context, id string) (*models.Payg, error)
	UpdatePayg(ctx context.Context, in projectconfig.PaygInput) (*models.Payg, error)
}

type paygService struct {
	repo repository.PaygRepository
}

func NewPaygService(repo repository.PaygRepository) PaygService {
	return &paygService{repo: repo}
}

var _ PaygService = (*paygService)(nil)

func (s *paygService) GetPayg(ctx context.Context, id string) (*models.Payg, error) {
	var p models.Payg
	if err := s.repo.GetByID(ctx, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePayg replaces the whole policy; fields missing from in take their defaults.
func (s *paygService) UpdatePayg(ctx context.Context, in projectconfig.PaygInput) (*models.Payg, error) {
	p, err := projectconfig.HydratePayg(in)
	if err != nil {
		return nil, err
	}
	logger.L().Info("update payg", zap.String("id", p.ID), zap.String("price", p.Price),
		zap.Int("threshold", p.Threshold), zap.Int("overflow", p.Overflow))

	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return s.GetPayg(ctx, p.ID)
}
