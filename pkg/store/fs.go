// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	_ "github.com/teradata-labs/reel/internal/sqlitedriver"
)

const (
	blobDirName  = "blobs"
	blobExt      = ".zst"
	indexDBName  = "index.db"
	blobFileMode = 0600
	blobDirMode  = 0750
)

// FSStore is a filesystem-backed Store: payloads live as zstd-compressed
// blob files under <root>/blobs, metadata lives in a SQLite index at
// <root>/index.db. Payload integrity is checked against the recorded
// SHA-256 on every Get.
type FSStore struct {
	root    string
	blobDir string
	db      *sql.DB
	mu      sync.RWMutex
	logger  *zap.Logger

	// Compression encoder/decoder (reusable, thread-safe)
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewFSStore opens (or initializes) a store rooted at dir.
func NewFSStore(dir string, logger *zap.Logger) (*FSStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	blobDir := filepath.Join(dir, blobDirName)
	if err := os.MkdirAll(blobDir, blobDirMode); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, indexDBName))
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Create zstd encoder/decoder (reusable, thread-safe)
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	s := &FSStore{
		root:    dir,
		blobDir: blobDir,
		db:      db,
		logger:  logger,
		encoder: encoder,
		decoder: decoder,
	}

	if err := s.initSchema(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the index schema if it doesn't exist.
func (s *FSStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS media (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		mime TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		sha256 TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_media_created_at ON media(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Put ingests a payload under a freshly assigned id.
func (s *FSStore) Put(ctx context.Context, name, mime string, data []byte) (Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := sha256.Sum256(data)
	desc := Descriptor{
		ID:        uuid.NewString(),
		Name:      name,
		MIME:      mime,
		Size:      int64(len(data)),
		SHA256:    hex.EncodeToString(sum[:]),
		CreatedAt: time.Now(),
	}

	compressed := s.encoder.EncodeAll(data, nil)
	blobPath := s.blobPath(desc.ID)
	if err := os.WriteFile(blobPath, compressed, blobFileMode); err != nil {
		return Descriptor{}, fmt.Errorf("failed to write blob: %w", err)
	}

	query := `
		INSERT INTO media (id, name, mime, size_bytes, sha256, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			mime = excluded.mime,
			size_bytes = excluded.size_bytes,
			sha256 = excluded.sha256
	`
	_, err := s.db.ExecContext(ctx, query,
		desc.ID, desc.Name, desc.MIME, desc.Size, desc.SHA256, desc.CreatedAt.Unix())
	if err != nil {
		// Roll back the orphaned blob so the index stays authoritative.
		_ = os.Remove(blobPath)
		return Descriptor{}, fmt.Errorf("failed to index resource: %w", err)
	}

	s.logger.Debug("Resource ingested",
		zap.String("id", desc.ID),
		zap.String("name", desc.Name),
		zap.Int64("size_bytes", desc.Size),
		zap.Int("compressed_bytes", len(compressed)))

	return desc, nil
}

// Get returns the payload for id, verifying it against the recorded digest.
func (s *FSStore) Get(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	desc, err := s.describeLocked(ctx, id)
	if err != nil {
		return nil, err
	}

	compressed, err := os.ReadFile(s.blobPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			// Indexed but blob missing: corruption, not absence.
			return nil, fmt.Errorf("blob missing for indexed resource %s: %w", id, err)
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}

	data, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress blob %s: %w", id, err)
	}

	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != desc.SHA256 {
		return nil, fmt.Errorf("checksum mismatch for resource %s", id)
	}

	return data, nil
}

// Describe returns the descriptor for id.
func (s *FSStore) Describe(ctx context.Context, id string) (Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	desc, err := s.describeLocked(ctx, id)
	if err != nil {
		return Descriptor{}, err
	}
	return *desc, nil
}

func (s *FSStore) describeLocked(ctx context.Context, id string) (*Descriptor, error) {
	query := `
		SELECT id, name, mime, size_bytes, sha256, created_at
		FROM media WHERE id = ?
	`
	row := s.db.QueryRowContext(ctx, query, id)

	var desc Descriptor
	var createdAt int64
	err := row.Scan(&desc.ID, &desc.Name, &desc.MIME, &desc.Size, &desc.SHA256, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query resource: %w", err)
	}
	desc.CreatedAt = time.Unix(createdAt, 0)

	return &desc, nil
}

// List returns all descriptors, newest first.
func (s *FSStore) List(ctx context.Context) ([]Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, name, mime, size_bytes, sha256, created_at
		FROM media ORDER BY created_at DESC, id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var descs []Descriptor
	for rows.Next() {
		var desc Descriptor
		var createdAt int64
		if err := rows.Scan(&desc.ID, &desc.Name, &desc.MIME, &desc.Size, &desc.SHA256, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan resource row: %w", err)
		}
		desc.CreatedAt = time.Unix(createdAt, 0)
		descs = append(descs, desc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resource rows: %w", err)
	}

	return descs, nil
}

// Delete removes the index row and the blob file.
func (s *FSStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM media WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := os.Remove(s.blobPath(id)); err != nil && !os.IsNotExist(err) {
		// Index row is gone; an orphaned blob is reclaimed by Compact.
		s.logger.Warn("Failed to remove blob file",
			zap.String("id", id),
			zap.Error(err))
	}

	s.logger.Debug("Resource deleted", zap.String("id", id))
	return nil
}

// Compact verifies every indexed blob and removes orphans: blob files with
// no index row are deleted, index rows whose blob is missing or corrupt are
// reported. Returns the number of orphaned blobs removed and the ids of
// damaged resources.
func (s *FSStore) Compact(ctx context.Context) (removed int, damaged []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	indexed := make(map[string]string) // id -> sha256
	rows, err := s.db.QueryContext(ctx, "SELECT id, sha256 FROM media")
	if err != nil {
		return 0, nil, fmt.Errorf("failed to scan index: %w", err)
	}
	for rows.Next() {
		var id, sum string
		if err := rows.Scan(&id, &sum); err != nil {
			rows.Close()
			return 0, nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		indexed[id] = sum
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, nil, fmt.Errorf("failed to iterate index: %w", err)
	}
	rows.Close()

	entries, err := os.ReadDir(s.blobDir)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read blob directory: %w", err)
	}

	onDisk := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != blobExt {
			continue
		}
		id := entry.Name()[:len(entry.Name())-len(blobExt)]
		onDisk[id] = struct{}{}

		if _, ok := indexed[id]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.blobDir, entry.Name())); err != nil {
			s.logger.Warn("Failed to remove orphaned blob",
				zap.String("id", id),
				zap.Error(err))
			continue
		}
		removed++
	}

	for id, want := range indexed {
		if _, ok := onDisk[id]; !ok {
			damaged = append(damaged, id)
			continue
		}
		compressed, err := os.ReadFile(s.blobPath(id))
		if err != nil {
			damaged = append(damaged, id)
			continue
		}
		data, err := s.decoder.DecodeAll(compressed, nil)
		if err != nil {
			damaged = append(damaged, id)
			continue
		}
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != want {
			damaged = append(damaged, id)
		}
	}

	sort.Strings(damaged)
	if removed > 0 || len(damaged) > 0 {
		s.logger.Info("Store compacted",
			zap.Int("orphans_removed", removed),
			zap.Int("damaged", len(damaged)))
	}

	return removed, damaged, nil
}

// BlobDir returns the directory holding blob files, for change watching.
func (s *FSStore) BlobDir() string {
	return s.blobDir
}

// Close closes the index database and the compression codecs.
func (s *FSStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.encoder.Close()
	s.decoder.Close()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close index database: %w", err)
	}
	return nil
}

func (s *FSStore) blobPath(id string) string {
	return filepath.Join(s.blobDir, id+blobExt)
}
