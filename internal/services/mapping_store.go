package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"infinite-experiment/reconboard/internal/logging"
	"infinite-experiment/reconboard/internal/models/dtos"
	"infinite-experiment/reconboard/internal/models/entities"
)

// MappingStore persists mappings through the backend and keeps the last
// successful listing per playground. A failed listing never clears it.
type MappingStore struct {
	backend MappingBackend

	mu           sync.RWMutex
	byID         map[string]entities.ReconciliationMapping
	byPlayground map[string][]string
}

func NewMappingStore(backend MappingBackend) *MappingStore {
	return &MappingStore{
		backend:      backend,
		byID:         make(map[string]entities.ReconciliationMapping),
		byPlayground: make(map[string][]string),
	}
}

func (s *MappingStore) Create(
	ctx context.Context,
	playgroundID string,
	leftTaskID string,
	rightTaskID string,
	fieldMap *entities.FieldMap,
) (*entities.ReconciliationMapping, error) {
	if fieldMap.Len() == 0 {
		return nil, ErrEmptyFieldMap
	}

	created, status, err := s.backend.CreateMapping(ctx, dtos.CreateMappingReq{
		PlaygroundID: playgroundID,
		LeftTaskID:   leftTaskID,
		RightTaskID:  rightTaskID,
		FieldMap:     fieldMap.Clone(),
	})
	if err != nil {
		logging.Warn("Create mapping failed", "playground_id", playgroundID, "status", status, "error", err)
		return nil, fmt.Errorf("create mapping: %w", err)
	}

	if created.PlaygroundID == "" {
		created.PlaygroundID = playgroundID
	}
	if created.FieldMap == nil {
		created.FieldMap = fieldMap.Clone()
	}
	s.remember(*created)

	logging.Info("Mapping created", "reconciliation_id", created.ID, "playground_id", created.PlaygroundID)
	out := created.Clone()
	return &out, nil
}

// Update replaces the whole field map of a persisted mapping.
func (s *MappingStore) Update(ctx context.Context, mappingID string, fieldMap *entities.FieldMap) (*entities.ReconciliationMapping, error) {
	if fieldMap.Len() == 0 {
		return nil, ErrEmptyFieldMap
	}

	updated, status, err := s.backend.UpdateMapping(ctx, dtos.UpdateMappingReq{
		ID:       mappingID,
		FieldMap: fieldMap.Clone(),
	})
	if err != nil {
		logging.Warn("Update mapping failed", "reconciliation_id", mappingID, "status", status, "error", err)
		return nil, fmt.Errorf("update mapping %s: %w", mappingID, err)
	}

	// The backend may echo only what changed.
	s.mu.RLock()
	prev, known := s.byID[mappingID]
	s.mu.RUnlock()
	if updated.ID == "" {
		updated.ID = mappingID
	}
	if known {
		if updated.PlaygroundID == "" {
			updated.PlaygroundID = prev.PlaygroundID
		}
		if updated.LeftTaskID == "" {
			updated.LeftTaskID = prev.LeftTaskID
		}
		if updated.RightTaskID == "" {
			updated.RightTaskID = prev.RightTaskID
		}
	}
	if updated.FieldMap == nil {
		updated.FieldMap = fieldMap.Clone()
	}
	s.remember(*updated)

	out := updated.Clone()
	return &out, nil
}

func (s *MappingStore) Delete(ctx context.Context, mappingID string) error {
	status, err := s.backend.DeleteMapping(ctx, mappingID)
	if err != nil {
		logging.Warn("Delete mapping failed", "reconciliation_id", mappingID, "status", status, "error", err)
		return fmt.Errorf("delete mapping %s: %w", mappingID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.byID[mappingID]; ok {
		ids := s.byPlayground[m.PlaygroundID]
		for i, id := range ids {
			if id == mappingID {
				s.byPlayground[m.PlaygroundID] = append(ids[:i:i], ids[i+1:]...)
				break
			}
		}
	}
	delete(s.byID, mappingID)
	return nil
}

// ListByPlayground fetches a playground's mappings. On failure it returns the
// last successful listing together with the error.
func (s *MappingStore) ListByPlayground(ctx context.Context, playgroundID string) ([]entities.ReconciliationMapping, error) {
	mappings, status, err := s.backend.ListMappings(ctx, playgroundID)
	if err != nil {
		logging.Warn("List mappings failed, serving cached list",
			"playground_id", playgroundID,
			"status", status,
			"error", err,
		)
		return s.Cached(playgroundID), fmt.Errorf("list mappings for %s: %w", playgroundID, err)
	}

	s.mu.Lock()
	for _, id := range s.byPlayground[playgroundID] {
		delete(s.byID, id)
	}
	ids := make([]string, 0, len(mappings))
	for _, m := range mappings {
		if m.PlaygroundID == "" {
			m.PlaygroundID = playgroundID
		}
		if m.FieldMap == nil {
			m.FieldMap = entities.NewFieldMap()
		}
		s.byID[m.ID] = m.Clone()
		ids = append(ids, m.ID)
	}
	s.byPlayground[playgroundID] = ids
	s.mu.Unlock()

	return s.Cached(playgroundID), nil
}

// Cached returns copies of the last known mappings for a playground.
func (s *MappingStore) Cached(playgroundID string) []entities.ReconciliationMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byPlayground[playgroundID]
	out := make([]entities.ReconciliationMapping, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.byID[id]; ok {
			out = append(out, m.Clone())
		}
	}
	return out
}

func (s *MappingStore) Get(mappingID string) (entities.ReconciliationMapping, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[mappingID]
	if !ok {
		return entities.ReconciliationMapping{}, false
	}
	return m.Clone(), true
}

// FieldMapFor returns a copy of the mapping's field map, nil when unknown.
func (s *MappingStore) FieldMapFor(mappingID string) *entities.FieldMap {
	m, ok := s.Get(mappingID)
	if !ok {
		return nil
	}
	return m.FieldMap
}

// KnownMappingIDs lists every cached mapping id in sorted order.
func (s *MappingStore) KnownMappingIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *MappingStore) remember(m entities.ReconciliationMapping) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[m.ID]; !exists {
		s.byPlayground[m.PlaygroundID] = append(s.byPlayground[m.PlaygroundID], m.ID)
	}
	s.byID[m.ID] = m.Clone()
}
