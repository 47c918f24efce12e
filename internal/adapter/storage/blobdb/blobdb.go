// Package blobdb is the device-local image database behind legacy "idb:"
// references. Blobs stored here never leave the device.
package blobdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dov85/Apartment/internal/listing/domain"
	_ "modernc.org/sqlite"
)

var ErrNotFound = fmt.Errorf("device blob: %w", domain.ErrImageNotFound)

const schema = `
CREATE TABLE IF NOT EXISTS images (
	id         TEXT PRIMARY KEY,
	mime_type  TEXT NOT NULL,
	data       BLOB NOT NULL,
	created_at INTEGER NOT NULL
);`

// Store is a domain.BlobStore backed by SQLite.
type Store struct {
	db *sql.DB
}

var _ domain.BlobStore = (*Store)(nil)

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create blob db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob db: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize blob db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Get(ctx context.Context, id string) ([]byte, string, error) {
	var (
		data     []byte
		mimeType string
	)
	err := s.db.QueryRowContext(ctx, `SELECT data, mime_type FROM images WHERE id = ?`, id).Scan(&data, &mimeType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("blobdb get %s: %w", id, err)
	}
	return data, mimeType, nil
}

func (s *Store) Put(ctx context.Context, id string, data []byte, mimeType string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO images (id, mime_type, data, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET mime_type = excluded.mime_type, data = excluded.data`,
		id, mimeType, data, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("blobdb put %s: %w", id, err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM images WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("blobdb exists %s: %w", id, err)
	}
	return true, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id); err != nil {
		return fmt.Errorf("blobdb delete %s: %w", id, err)
	}
	return nil
}
