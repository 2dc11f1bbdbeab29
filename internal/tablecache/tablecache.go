/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package tablecache is a disk-backed, TTL-keyed cache for the raw bytes of
// expensive ingest and distance-service responses, grounded on
// pkg/cache/cache.go (named TTL constants per consumer) and
// pkg/cache/validation.go (hashstructure-derived keys, a patrickmn/go-cache
// front layer). Unlike the teacher's in-memory-only cache, this one is
// backed by modernc.org/sqlite with its schema applied through
// golang-migrate/migrate/v4, the way internal/db/migrate.go manages its
// schema in the banshee-data-velocity.report example.
package tablecache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mitchellh/hashstructure/v2"
	gocache "github.com/patrickmn/go-cache"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a two-level cache: an in-process patrickmn/go-cache front layer
// backed by a sqlite table that survives process restarts.
type Store struct {
	db  *sql.DB
	mem *gocache.Cache
}

// Open creates (or reuses) a sqlite database at path, applies the cache
// schema, and returns a ready Store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tablecache: opening %s: %w", path, err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{
		db:  db,
		mem: gocache.New(5*time.Minute, 10*time.Minute),
	}, nil
}

func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("tablecache: loading embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("tablecache: creating sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("tablecache: creating migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("tablecache: applying migrations: %w", err)
	}
	return nil
}

// Close releases the underlying sqlite connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached value for key if present and no older than ttl.
// A ttl of zero means the stored value never expires.
func (s *Store) Get(ctx context.Context, key string, ttl time.Duration) ([]byte, bool, error) {
	if v, ok := s.mem.Get(key); ok {
		return v.([]byte), true, nil
	}

	var value []byte
	var storedAt int64
	err := s.db.QueryRowContext(ctx, `SELECT value, stored_at FROM cache_entries WHERE key = ?`, key).Scan(&value, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("tablecache: reading %s: %w", key, err)
	}
	if ttl > 0 && time.Since(time.Unix(storedAt, 0)) > ttl {
		return nil, false, nil
	}
	s.mem.Set(key, value, ttl)
	return value, true, nil
}

// Put writes value for key, overwriting any prior entry.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, stored_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, stored_at = excluded.stored_at
	`, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("tablecache: writing %s: %w", key, err)
	}
	s.mem.SetDefault(key, value)
	return nil
}

// Key derives a stable cache key from v, the way pkg/cache/validation.go
// hashes a node class's identifying fields into its cache key.
func Key(v interface{}) (string, error) {
	h, err := hashstructure.Hash(v, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("tablecache: hashing key: %w", err)
	}
	return fmt.Sprintf("%016x", h), nil
}
