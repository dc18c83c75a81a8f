package registry

import (
	"context"
	"fmt"

	"github.com/couchcryptid/case-trend-service/internal/domain"
	"github.com/couchcryptid/case-trend-service/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached wraps a Registry with an in-memory LRU of decoded models.
// Save writes through and refreshes the cached entry.
type Cached struct {
	inner   Registry
	cache   *lru.Cache[string, domain.TrainedModel]
	metrics *observability.Metrics
}

// NewCached creates a cache decorator holding up to maxEntries models.
func NewCached(inner Registry, maxEntries int, metrics *observability.Metrics) (*Cached, error) {
	cache, err := lru.New[string, domain.TrainedModel](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create registry cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *Cached) Save(ctx context.Context, model domain.TrainedModel) error {
	if err := c.inner.Save(ctx, model); err != nil {
		c.cache.Remove(model.EntityID)
		return err
	}
	c.cache.Add(model.EntityID, model)
	return nil
}

func (c *Cached) Load(ctx context.Context, entityID string) (domain.TrainedModel, error) {
	if model, ok := c.cache.Get(entityID); ok {
		c.metrics.RegistryCache.WithLabelValues("hit").Inc()
		return model, nil
	}
	c.metrics.RegistryCache.WithLabelValues("miss").Inc()

	model, err := c.inner.Load(ctx, entityID)
	if err != nil {
		return model, err
	}
	c.cache.Add(entityID, model)
	return model, nil
}

func (c *Cached) CheckReadiness(ctx context.Context) error {
	return c.inner.CheckReadiness(ctx)
}
