// Package storage provides the local project store for sarex.
//
// It defines the StorageBackend protocol for project bookkeeping and
// dependency relations, along with the records it persists.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrProjectNotFound is returned when a project ID is unknown.
var ErrProjectNotFound = errors.New("no such project")

// Project groups the data recorded for one analyzed system.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// DependencyRelation is a source-level dependency from a project symbol to
// an external one.
type DependencyRelation struct {
	ProjectID string `json:"project_id"`
	Source    string `json:"source"`
	Target    string `json:"target"`
}

// StorageBackend defines the interface for storage implementations.
//
// Implementations must be thread-safe and support concurrent access.
type StorageBackend interface {
	// Lifecycle methods

	// Initialize opens or creates the storage backend at the given path.
	// If readOnly is true, the backend is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// Project operations

	// CreateProject stores a new project and returns it.
	CreateProject(ctx context.Context, name string) (*Project, error)

	// GetProject returns a project by ID, or nil if not found.
	GetProject(ctx context.Context, id string) (*Project, error)

	// RenameProject changes a project's name.
	// Returns ErrProjectNotFound if the project does not exist.
	RenameProject(ctx context.Context, id, name string) error

	// ListProjects returns all projects, oldest first.
	ListProjects(ctx context.Context) ([]*Project, error)

	// Dependency relation operations

	// AddRelations appends relations to a project, preserving order.
	// Returns ErrProjectNotFound if the project does not exist.
	AddRelations(ctx context.Context, projectID string, rels []DependencyRelation) error

	// GetRelations returns a project's relations in insertion order.
	GetRelations(ctx context.Context, projectID string) ([]DependencyRelation, error)
}
