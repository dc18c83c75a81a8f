// Package store holds ingested observations in memory, one ordered series
// per entity.
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/couchcryptid/case-trend-service/internal/domain"
)

// Store is an in-memory record store. Each entity's series is kept sorted by
// timestamp with strictly increasing dates.
type Store struct {
	mu     sync.RWMutex
	series map[string][]domain.Observation
}

// New creates an empty Store.
func New() *Store {
	return &Store{series: make(map[string][]domain.Observation)}
}

// Load returns a copy of the entity's observations in ascending date order.
func (s *Store) Load(entityID string) ([]domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obs, ok := s.series[entityID]
	if !ok {
		return nil, fmt.Errorf("load observations for %q: %w", entityID, domain.ErrNotFound)
	}
	out := make([]domain.Observation, len(obs))
	copy(out, obs)
	return out, nil
}

// Append adds an observation to the end of its entity's series. The
// observation's date must be later than the last stored date.
func (s *Store) Append(obs domain.Observation) error {
	if strings.TrimSpace(obs.EntityID) == "" {
		return fmt.Errorf("append observation: empty entity id: %w", domain.ErrInvalidArgument)
	}
	obs.Timestamp = domain.NormalizeDate(obs.Timestamp)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.series[obs.EntityID]
	if n := len(existing); n > 0 && !obs.Timestamp.After(existing[n-1].Timestamp) {
		return fmt.Errorf("append %s on %s after %s: %w",
			obs.EntityID, obs.Timestamp.Format("2006-01-02"),
			existing[n-1].Timestamp.Format("2006-01-02"), domain.ErrOutOfOrder)
	}
	s.series[obs.EntityID] = append(existing, obs)
	return nil
}

// Replace swaps the entity's series for the given observations, sorting them
// by date. Duplicate dates or observations for another entity are rejected
// and leave the stored series untouched.
func (s *Store) Replace(entityID string, observations []domain.Observation) error {
	if strings.TrimSpace(entityID) == "" {
		return fmt.Errorf("replace observations: empty entity id: %w", domain.ErrInvalidArgument)
	}

	sorted := make([]domain.Observation, len(observations))
	for i, obs := range observations {
		if obs.EntityID != entityID {
			return fmt.Errorf("replace observations for %q: row %d belongs to %q: %w",
				entityID, i, obs.EntityID, domain.ErrInvalidArgument)
		}
		obs.Timestamp = domain.NormalizeDate(obs.Timestamp)
		sorted[i] = obs
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Timestamp.Equal(sorted[i-1].Timestamp) {
			return fmt.Errorf("replace observations for %q: duplicate date %s: %w",
				entityID, sorted[i].Timestamp.Format("2006-01-02"), domain.ErrOutOfOrder)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[entityID] = sorted
	return nil
}

// Entities lists known entity IDs in lexical order.
func (s *Store) Entities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.series))
	for id := range s.series {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len reports how many observations are stored for the entity.
func (s *Store) Len(entityID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series[entityID])
}
