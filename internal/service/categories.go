package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/cache"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/observability"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/port"
)

const categoriesKey = "all"

// CategoryService serves the category list. It rarely changes, so it is
// cached and concurrent loads are shared.
type CategoryService struct {
	api    port.CategoryAPI
	loader *cache.Loader[[]domain.Category]
	logger *zap.Logger
}

func NewCategoryService(api port.CategoryAPI, ttl time.Duration, metrics *observability.Metrics, logger *zap.Logger) *CategoryService {
	return &CategoryService{
		api:    api,
		loader: cache.NewLoader[[]domain.Category]("categories", ttl, metrics),
		logger: logger,
	}
}

// List returns all categories.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "CategoryService.List")
	defer span.End()

	return s.loader.Get(ctx, categoriesKey, func(ctx context.Context) ([]domain.Category, error) {
		cats, err := s.api.ListCategories(ctx)
		if err != nil {
			s.logger.Warn("categories fetch failed", zap.Error(err))
			return nil, err
		}
		return cats, nil
	})
}

// ByID indexes the category list.
func (s *CategoryService) ByID(ctx context.Context) (map[int]domain.Category, error) {
	cats, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int]domain.Category, len(cats))
	for _, c := range cats {
		out[c.ID] = c
	}
	return out, nil
}

// Refresh drops the cached list.
func (s *CategoryService) Refresh() {
	s.loader.Invalidate(categoriesKey)
}

func (s *CategoryService) Close() {
	s.loader.Close()
}
