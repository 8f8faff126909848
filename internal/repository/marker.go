package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/sumire/jobtracker/internal/domain"
)

// MarkerStore is the persisted slot remembering which username a session
// marker belongs to. It survives restarts of the server.
type MarkerStore interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, username string) error
	Clear(ctx context.Context, key string) error
	Close() error
}

// OpenMarkerStore picks a backend from the URL scheme: postgres:// and
// postgresql:// use pgx, redis:// uses Redis, anything else is a SQLite path.
func OpenMarkerStore(ctx context.Context, rawURL string, ttl time.Duration) (MarkerStore, error) {
	switch {
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		db, err := sqlx.ConnectContext(ctx, "pgx", rawURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		db.SetMaxOpenConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		return migrated(ctx, db)

	case strings.HasPrefix(rawURL, "redis://"), strings.HasPrefix(rawURL, "rediss://"):
		store, err := NewRedisMarkerStore(ctx, rawURL, ttl)
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		db, err := OpenSQLite(ctx, strings.TrimPrefix(rawURL, "sqlite://"))
		if err != nil {
			return nil, err
		}
		return migrated(ctx, db)
	}
}

func migrated(ctx context.Context, db *sqlx.DB) (MarkerStore, error) {
	repo := NewMarkerRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenSQLite opens a SQLite database file. SQLite serialises writers, so the
// pool is held to a single connection; this also keeps ":memory:" databases
// shared across calls.
func OpenSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// MarkerRepository stores session markers in a SQL table.
type MarkerRepository struct {
	db *sqlx.DB
}

// NewMarkerRepository creates a new MarkerRepository.
func NewMarkerRepository(db *sqlx.DB) *MarkerRepository {
	return &MarkerRepository{db: db}
}

// Migrate creates the marker table if needed.
func (r *MarkerRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS session_markers (
	marker_key TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("migrate session_markers: %w", err)
	}
	return nil
}

// Load returns the username remembered for key, or domain.ErrNotFound.
func (r *MarkerRepository) Load(ctx context.Context, key string) (string, error) {
	var username string
	err := r.db.GetContext(ctx, &username,
		r.db.Rebind(`SELECT username FROM session_markers WHERE marker_key = ?`), key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("load session marker: %w", err)
	}
	return username, nil
}

// Save remembers username under key, replacing any previous value.
func (r *MarkerRepository) Save(ctx context.Context, key, username string) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO session_markers (marker_key, username, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (marker_key)
		 DO UPDATE SET username = excluded.username,
		               updated_at = excluded.updated_at`),
		key, username, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save session marker: %w", err)
	}
	return nil
}

// Clear forgets key. Clearing an unknown key is not an error.
func (r *MarkerRepository) Clear(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`DELETE FROM session_markers WHERE marker_key = ?`), key)
	if err != nil {
		return fmt.Errorf("clear session marker: %w", err)
	}
	return nil
}

// Close releases the database.
func (r *MarkerRepository) Close() error {
	return r.db.Close()
}
