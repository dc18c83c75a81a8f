// Package registry persists trained models keyed by entity ID.
//
// Every backend stores the same opaque blob produced by Encode, so a model
// saved through one backend decodes identically through any other.
package registry

import (
	"context"

	"github.com/couchcryptid/case-trend-service/internal/domain"
)

// Registry saves and loads trained models. Save overwrites any previous
// model for the entity. Load returns domain.ErrNotFound when the entity has
// never been trained.
type Registry interface {
	Save(ctx context.Context, model domain.TrainedModel) error
	Load(ctx context.Context, entityID string) (domain.TrainedModel, error)
	CheckReadiness(ctx context.Context) error
}
