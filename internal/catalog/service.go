package catalog

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/daguilastro/Los5deSergito/internal/domain"
)

// Lister is the upstream read surface the catalog depends on.
type Lister interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	LowStockAlerts(ctx context.Context) ([]domain.Product, error)
}

// Service serves the product catalog from cache, collapsing concurrent cache
// misses into one upstream fetch. Rapid re-renders of the sale screen can
// overlap fetches with an invalidation; responses that are no longer the
// newest are handed to their caller but never written back to the cache.
type Service struct {
	upstream Lister
	cache    ProductCache
	sfg      singleflight.Group
	seq      atomic.Uint64 // bumped per fetch and per invalidation
	logger   *zap.Logger
}

func NewService(upstream Lister, cache ProductCache, logger *zap.Logger) *Service {
	return &Service{
		upstream: upstream,
		cache:    cache,
		logger:   logger,
	}
}

// List returns the catalog, cache first. Cache errors degrade to a direct
// upstream fetch; they are logged, never surfaced.
func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	v, err, _ := s.sfg.Do(cacheKey, func() (interface{}, error) {
		products, errGet := s.cache.Get(ctx)
		if errGet == nil {
			return products, nil
		}
		if !errors.Is(errGet, ErrCacheMiss) {
			s.logger.Warn("catalog cache get failed", zap.Error(errGet))
		}

		seq := s.seq.Add(1)
		products, errList := s.upstream.ListProducts(ctx)
		if errList != nil {
			return nil, errList
		}

		if s.seq.Load() != seq {
			// An invalidation (or newer fetch) happened while this request
			// was in flight; serve the data but keep it out of the cache.
			return products, nil
		}
		if errSet := s.cache.Set(ctx, products); errSet != nil {
			s.logger.Warn("catalog cache set failed", zap.Error(errSet))
		}
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

// Get finds one product in the current catalog.
func (s *Service) Get(ctx context.Context, id int64) (domain.Product, error) {
	products, err := s.List(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

// LowStock returns the products below their minimum. Alerts are always read
// fresh; a stale alert is worse than a slow one.
func (s *Service) LowStock(ctx context.Context) ([]domain.Product, error) {
	return s.upstream.LowStockAlerts(ctx)
}

// Invalidate drops the cached catalog. Called after every confirmed sale and
// inventory mutation, because server-side stock has changed.
func (s *Service) Invalidate(ctx context.Context) {
	s.seq.Add(1)
	if err := s.cache.Delete(ctx); err != nil {
		s.logger.Warn("catalog cache invalidate failed", zap.Error(err))
	}
}
