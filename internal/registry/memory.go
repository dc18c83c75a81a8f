package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/case-trend-service/internal/domain"
)

// Memory is a process-local Registry holding encoded blobs in a map.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Save(_ context.Context, model domain.TrainedModel) error {
	blob, err := Encode(model)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[model.EntityID] = blob
	return nil
}

func (m *Memory) Load(_ context.Context, entityID string) (domain.TrainedModel, error) {
	m.mu.RLock()
	blob, ok := m.blobs[entityID]
	m.mu.RUnlock()
	if !ok {
		return domain.TrainedModel{}, fmt.Errorf("load model %q: %w", entityID, domain.ErrNotFound)
	}
	return Decode(blob)
}

func (m *Memory) CheckReadiness(_ context.Context) error { return nil }
