package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driven"
)

// Ensure ImportSourceStore implements the interface.
var _ driven.ImportSourceStore = (*ImportSourceStore)(nil)

// ImportSourceStore is an in-memory implementation of driven.ImportSourceStore.
type ImportSourceStore struct {
	mu      sync.RWMutex
	sources map[string]domain.ImportSource
}

// NewImportSourceStore creates a new in-memory import source store.
func NewImportSourceStore() *ImportSourceStore {
	return &ImportSourceStore{
		sources: make(map[string]domain.ImportSource),
	}
}

// Save stores or updates the import source of a project.
func (s *ImportSourceStore) Save(_ context.Context, source domain.ImportSource) error {
	if source.ProjectID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[source.ProjectID] = source
	return nil
}

// Get retrieves the import source of a project.
func (s *ImportSourceStore) Get(_ context.Context, projectID string) (*domain.ImportSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	source, ok := s.sources[projectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &source, nil
}

// List returns every recorded import source ordered by project ID.
func (s *ImportSourceStore) List(_ context.Context) ([]domain.ImportSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.ImportSource, 0, len(s.sources))
	for _, source := range s.sources {
		result = append(result, source)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ProjectID < result[j].ProjectID })
	return result, nil
}

// Delete removes the import source of a project.
func (s *ImportSourceStore) Delete(_ context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, projectID)
	return nil
}
