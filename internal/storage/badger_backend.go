package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Key prefixes for different data types
const (
	prefixProject  = "p:"    // project data
	prefixRelation = "d:"    // dependency relations, per project, in insertion order
	keySequence    = "s:rel" // relation sequence
)

// BadgerBackend is a BadgerDB-backed storage implementation.
type BadgerBackend struct {
	db          *badger.DB
	seq         *badger.Sequence
	logger      *slog.Logger
	initialized bool
	mu          sync.RWMutex
	now         func() time.Time
}

// BadgerOption configures a BadgerBackend.
type BadgerOption func(*BadgerBackend)

// WithLogger routes BadgerDB's internal logging to logger.
func WithLogger(logger *slog.Logger) BadgerOption {
	return func(b *BadgerBackend) {
		b.logger = logger
	}
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend(opts ...BadgerOption) *BadgerBackend {
	b := &BadgerBackend{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if b.logger != nil {
		opts = opts.WithLogger(badgerLogger{b.logger})
	}

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	if !readOnly {
		b.seq, err = b.db.GetSequence([]byte(keySequence), 100)
		if err != nil {
			_ = b.db.Close()
			b.db = nil
			return fmt.Errorf("opening relation sequence: %w", err)
		}
	}

	b.initialized = true
	return nil
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	if b.seq != nil {
		_ = b.seq.Release()
		b.seq = nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

func (b *BadgerBackend) projectKey(id string) []byte {
	return []byte(prefixProject + id)
}

func (b *BadgerBackend) relationPrefix(projectID string) []byte {
	return []byte(prefixRelation + projectID + ":")
}

func (b *BadgerBackend) relationKey(projectID string, n uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixRelation, projectID, n))
}

// CreateProject stores a new project and returns it.
func (b *BadgerBackend) CreateProject(ctx context.Context, name string) (*Project, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := &Project{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: b.now().UTC(),
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshaling project: %w", err)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.projectKey(p.ID), data)
	})
	if err != nil {
		return nil, fmt.Errorf("setting project: %w", err)
	}

	return p, nil
}

// GetProject returns a project by ID, or nil if not found.
func (b *BadgerBackend) GetProject(ctx context.Context, id string) (*Project, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	return b.getProject(txn, id)
}

func (b *BadgerBackend) getProject(txn *badger.Txn, id string) (*Project, error) {
	item, err := txn.Get(b.projectKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting project: %w", err)
	}

	var p Project
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &p)
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling project: %w", err)
	}

	return &p, nil
}

// RenameProject changes a project's name.
func (b *BadgerBackend) RenameProject(ctx context.Context, id, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.db.Update(func(txn *badger.Txn) error {
		p, err := b.getProject(txn, id)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
		}

		p.Name = name
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshaling project: %w", err)
		}
		return txn.Set(b.projectKey(id), data)
	})
}

// ListProjects returns all projects, oldest first.
func (b *BadgerBackend) ListProjects(ctx context.Context) ([]*Project, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var projects []*Project

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixProject)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		var p Project
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		}); err != nil {
			return nil, fmt.Errorf("unmarshaling project: %w", err)
		}
		projects = append(projects, &p)
	}

	sortProjects(projects)
	return projects, nil
}

// AddRelations appends relations to a project, preserving order.
func (b *BadgerBackend) AddRelations(ctx context.Context, projectID string, rels []DependencyRelation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.seq == nil {
		return fmt.Errorf("store is read-only")
	}

	txn := b.db.NewTransaction(false)
	p, err := b.getProject(txn, projectID)
	txn.Discard()
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}

	// Write batches commit in as many transactions as needed
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for _, rel := range rels {
		rel.ProjectID = projectID
		data, err := json.Marshal(rel)
		if err != nil {
			return fmt.Errorf("marshaling relation: %w", err)
		}

		n, err := b.seq.Next()
		if err != nil {
			return fmt.Errorf("allocating relation key: %w", err)
		}

		if err := wb.Set(b.relationKey(projectID, n), data); err != nil {
			return fmt.Errorf("setting relation: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flushing relations: %w", err)
	}

	return nil
}

// GetRelations returns a project's relations in insertion order.
func (b *BadgerBackend) GetRelations(ctx context.Context, projectID string) ([]DependencyRelation, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var rels []DependencyRelation

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = b.relationPrefix(projectID)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		var rel DependencyRelation
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &rel)
		}); err != nil {
			return nil, fmt.Errorf("unmarshaling relation: %w", err)
		}
		rels = append(rels, rel)
	}

	return rels, nil
}

func sortProjects(projects []*Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		if projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].ID < projects[j].ID
		}
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})
}

// badgerLogger adapts slog to badger.Logger. Badger's info and debug
// chatter is demoted to debug.
type badgerLogger struct {
	l *slog.Logger
}

func (a badgerLogger) Errorf(format string, args ...any) {
	a.l.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (a badgerLogger) Warningf(format string, args ...any) {
	a.l.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (a badgerLogger) Infof(format string, args ...any) {
	a.l.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (a badgerLogger) Debugf(format string, args ...any) {
	a.l.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
