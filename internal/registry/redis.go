package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/case-trend-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "case-trend:model:"

// Redis stores model blobs as plain string values, one key per entity.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// OpenRedis connects to the server at url and verifies it with PING.
func OpenRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Save(ctx context.Context, model domain.TrainedModel) error {
	blob, err := Encode(model)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, redisKeyPrefix+model.EntityID, blob, 0).Err(); err != nil {
		return fmt.Errorf("save model %q: %w", model.EntityID, err)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context, entityID string) (domain.TrainedModel, error) {
	blob, err := r.client.Get(ctx, redisKeyPrefix+entityID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.TrainedModel{}, fmt.Errorf("load model %q: %w", entityID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.TrainedModel{}, fmt.Errorf("load model %q: %w", entityID, err)
	}
	return Decode(blob)
}

func (r *Redis) CheckReadiness(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
