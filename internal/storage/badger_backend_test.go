package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestBadgerBackend(t *testing.T) (*BadgerBackend, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "badger")

	backend := NewBadgerBackend()
	err := backend.Initialize(dbPath, false)
	require.NoError(t, err)

	cleanup := func() {
		backend.Close()
	}

	return backend, cleanup
}

func TestBadgerBackend_Initialize(t *testing.T) {
	t.Parallel()

	t.Run("Success", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "badger")

		backend := NewBadgerBackend()
		err := backend.Initialize(dbPath, false)

		assert.NoError(t, err)
		assert.NotNil(t, backend.db)
		assert.True(t, backend.initialized)

		backend.Close()
	})

	t.Run("ReadOnly", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "badger")

		// First create the DB
		backend1 := NewBadgerBackend()
		err := backend1.Initialize(dbPath, false)
		require.NoError(t, err)
		backend1.Close()

		// Open in read-only mode
		backend2 := NewBadgerBackend()
		err = backend2.Initialize(dbPath, true)

		assert.NoError(t, err)
		assert.True(t, backend2.initialized)

		p, err := backend2.GetProject(context.Background(), "missing")
		assert.NoError(t, err)
		assert.Nil(t, p)

		backend2.Close()
	})

	t.Run("InvalidPath", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, nil, 0o644))

		backend := NewBadgerBackend()
		err := backend.Initialize(filepath.Join(file, "badger"), false)

		assert.Error(t, err)
	})

	t.Run("CloseTwice", func(t *testing.T) {
		backend := NewBadgerBackend()
		require.NoError(t, backend.Initialize(filepath.Join(t.TempDir(), "badger"), false))

		assert.NoError(t, backend.Close())
		assert.NoError(t, backend.Close())
	})
}

func TestBadgerBackend_Projects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend, cleanup := setupTestBadgerBackend(t)
	defer cleanup()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	backend.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := backend.CreateProject(ctx, "billing")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "billing", first.Name)

	second, err := backend.CreateProject(ctx, "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	t.Run("Get", func(t *testing.T) {
		p, err := backend.GetProject(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first, p)
	})

	t.Run("GetMissing", func(t *testing.T) {
		p, err := backend.GetProject(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("ListOldestFirst", func(t *testing.T) {
		projects, err := backend.ListProjects(ctx)
		require.NoError(t, err)
		require.Len(t, projects, 2)
		assert.Equal(t, first.ID, projects[0].ID)
		assert.Equal(t, second.ID, projects[1].ID)
	})

	t.Run("Rename", func(t *testing.T) {
		require.NoError(t, backend.RenameProject(ctx, second.ID, "payments"))

		p, err := backend.GetProject(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, "payments", p.Name)
		assert.True(t, second.CreatedAt.Equal(p.CreatedAt))
	})

	t.Run("RenameMissing", func(t *testing.T) {
		err := backend.RenameProject(ctx, "nope", "x")
		assert.True(t, errors.Is(err, ErrProjectNotFound))
	})
}

func TestBadgerBackend_Relations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend, cleanup := setupTestBadgerBackend(t)
	defer cleanup()

	a, err := backend.CreateProject(ctx, "a")
	require.NoError(t, err)
	b, err := backend.CreateProject(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, backend.AddRelations(ctx, a.ID, []DependencyRelation{
		{Source: "com.acme.Order", Target: "java.util.List"},
		{Source: "com.acme.Order", Target: "org.slf4j.Logger"},
	}))
	require.NoError(t, backend.AddRelations(ctx, b.ID, []DependencyRelation{
		{Source: "net.other.X", Target: "java.io.File"},
	}))
	require.NoError(t, backend.AddRelations(ctx, a.ID, []DependencyRelation{
		{Source: "com.acme.Invoice", Target: "java.time.Instant"},
	}))

	t.Run("InsertionOrder", func(t *testing.T) {
		rels, err := backend.GetRelations(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, []DependencyRelation{
			{ProjectID: a.ID, Source: "com.acme.Order", Target: "java.util.List"},
			{ProjectID: a.ID, Source: "com.acme.Order", Target: "org.slf4j.Logger"},
			{ProjectID: a.ID, Source: "com.acme.Invoice", Target: "java.time.Instant"},
		}, rels)
	})

	t.Run("ScopedToProject", func(t *testing.T) {
		rels, err := backend.GetRelations(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, rels, 1)
		assert.Equal(t, b.ID, rels[0].ProjectID)
	})

	t.Run("UnknownProject", func(t *testing.T) {
		err := backend.AddRelations(ctx, "nope", []DependencyRelation{{Source: "a", Target: "b"}})
		assert.True(t, errors.Is(err, ErrProjectNotFound))

		rels, err := backend.GetRelations(ctx, "nope")
		assert.NoError(t, err)
		assert.Empty(t, rels)
	})
}

func TestBadgerBackend_LargeRelationSet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large relation set in short mode")
	}
	t.Parallel()

	ctx := context.Background()
	backend, cleanup := setupTestBadgerBackend(t)
	defer cleanup()

	p, err := backend.CreateProject(ctx, "big")
	require.NoError(t, err)

	const n = 200000
	rels := make([]DependencyRelation, n)
	for i := range rels {
		rels[i] = DependencyRelation{
			Source: fmt.Sprintf("com.acme.generated.Class%06d", i),
			Target: "java.util.concurrent.ConcurrentHashMap",
		}
	}
	require.NoError(t, backend.AddRelations(ctx, p.ID, rels))

	got, err := backend.GetRelations(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got, n)
	assert.Equal(t, "com.acme.generated.Class000000", got[0].Source)
	assert.Equal(t, fmt.Sprintf("com.acme.generated.Class%06d", n-1), got[n-1].Source)
	assert.Equal(t, p.ID, got[n-1].ProjectID)
}

func TestBadgerBackend_Persistence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "badger")

	backend := NewBadgerBackend()
	require.NoError(t, backend.Initialize(dbPath, false))
	p, err := backend.CreateProject(ctx, "kept")
	require.NoError(t, err)
	require.NoError(t, backend.AddRelations(ctx, p.ID, []DependencyRelation{{Source: "a.B", Target: "c.D"}}))
	require.NoError(t, backend.Close())

	reopened := NewBadgerBackend()
	require.NoError(t, reopened.Initialize(dbPath, false))
	defer reopened.Close()

	got, err := reopened.GetProject(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "kept", got.Name)

	require.NoError(t, reopened.AddRelations(ctx, p.ID, []DependencyRelation{{Source: "a.B", Target: "e.F"}}))

	rels, err := reopened.GetRelations(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, "c.D", rels[0].Target)
	assert.Equal(t, "e.F", rels[1].Target)
}
