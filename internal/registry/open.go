package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/case-trend-service/internal/config"
	"github.com/couchcryptid/case-trend-service/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Open builds the registry selected by REGISTRY_BACKEND, wrapped in a cache
// when REGISTRY_CACHE_SIZE is positive. The returned function releases any
// connections.
func Open(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (Registry, func(), error) {
	var (
		reg     Registry
		closeFn = func() {}
	)

	switch cfg.RegistryBackend {
	case config.RegistryRedis:
		r, err := OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		reg = r
		closeFn = func() {
			if err := r.Close(); err != nil {
				logger.Error("redis close error", "error", err)
			}
		}
	case config.RegistryPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db pool init: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		pg := NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		reg = pg
		closeFn = pool.Close
	case config.RegistryFile:
		f, err := NewFile(cfg.RegistryDir)
		if err != nil {
			return nil, nil, err
		}
		reg = f
	default:
		reg = NewMemory()
	}
	logger.Info("model registry ready", "backend", cfg.RegistryBackend)

	if cfg.RegistryCacheSize > 0 {
		cached, err := NewCached(reg, cfg.RegistryCacheSize, metrics)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		reg = cached
	}
	return reg, closeFn, nil
}
