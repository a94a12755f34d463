package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBackend is an in-memory implementation of StorageBackend for testing.
type MemoryBackend struct {
	mu        sync.RWMutex
	projects  map[string]*Project
	relations map[string][]DependencyRelation
	indexed   bool
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		projects:  make(map[string]*Project),
		relations: make(map[string][]DependencyRelation),
	}
}

// Initialize implements StorageBackend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed = true
	return nil
}

// Close implements StorageBackend.
func (m *MemoryBackend) Close() error {
	return nil
}

// CreateProject implements StorageBackend.
func (m *MemoryBackend) CreateProject(ctx context.Context, name string) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := &Project{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	m.projects[p.ID] = p
	cp := *p
	return &cp, nil
}

// GetProject implements StorageBackend.
func (m *MemoryBackend) GetProject(ctx context.Context, id string) (*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// RenameProject implements StorageBackend.
func (m *MemoryBackend) RenameProject(ctx context.Context, id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	p.Name = name
	return nil
}

// ListProjects implements StorageBackend.
func (m *MemoryBackend) ListProjects(ctx context.Context) ([]*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	projects := make([]*Project, 0, len(m.projects))
	for _, p := range m.projects {
		cp := *p
		projects = append(projects, &cp)
	}
	sortProjects(projects)
	return projects, nil
}

// AddRelations implements StorageBackend.
func (m *MemoryBackend) AddRelations(ctx context.Context, projectID string, rels []DependencyRelation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[projectID]; !ok {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	for _, rel := range rels {
		rel.ProjectID = projectID
		m.relations[projectID] = append(m.relations[projectID], rel)
	}
	return nil
}

// GetRelations implements StorageBackend.
func (m *MemoryBackend) GetRelations(ctx context.Context, projectID string) ([]DependencyRelation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]DependencyRelation(nil), m.relations[projectID]...), nil
}

// IsIndexed returns true if the backend has been initialized.
func (m *MemoryBackend) IsIndexed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexed
}
