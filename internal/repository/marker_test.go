package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/jobtracker/internal/domain"
)

func newMarkerRepo(t *testing.T) *MarkerRepository {
	t.Helper()
	db, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewMarkerRepository(db)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func TestMarkerRepositorySaveLoadClear(t *testing.T) {
	repo := newMarkerRepo(t)
	ctx := context.Background()

	_, err := repo.Load(ctx, "k1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Save(ctx, "k1", "alice"))
	username, err := repo.Load(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	// saving again replaces the remembered username
	require.NoError(t, repo.Save(ctx, "k1", "bob"))
	username, err = repo.Load(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "bob", username)

	require.NoError(t, repo.Clear(ctx, "k1"))
	_, err = repo.Load(ctx, "k1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// clearing twice is fine
	require.NoError(t, repo.Clear(ctx, "k1"))
}

func TestMarkerRepositoryMigrateIsIdempotent(t *testing.T) {
	repo := newMarkerRepo(t)
	assert.NoError(t, repo.Migrate(context.Background()))
}

func TestOpenMarkerStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "markers.sqlite")

	store, err := OpenMarkerStore(ctx, path, time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "k", "alice"))
	require.NoError(t, store.Close())

	store, err = OpenMarkerStore(ctx, "sqlite://"+path, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	username, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}
