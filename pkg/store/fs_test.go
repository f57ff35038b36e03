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
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_PutAndGet(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	data := bytes.Repeat([]byte("frame"), 4096)

	desc, err := s.Put(ctx, "clip.mp4", "video/mp4", data)
	require.NoError(t, err)
	assert.NotEmpty(t, desc.ID)
	assert.Equal(t, "clip.mp4", desc.Name)
	assert.Equal(t, "video/mp4", desc.MIME)
	assert.Equal(t, int64(len(data)), desc.Size)
	assert.Len(t, desc.SHA256, 64)

	got, err := s.Get(ctx, desc.ID)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFSStore_GetNotFound(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFSStore_ListNewestFirst(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	first, err := s.Put(ctx, "a.png", "image/png", []byte("a"))
	require.NoError(t, err)
	// created_at has second granularity in the index
	time.Sleep(1100 * time.Millisecond)
	second, err := s.Put(ctx, "b.png", "image/png", []byte("b"))
	require.NoError(t, err)

	descs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, second.ID, descs[0].ID)
	assert.Equal(t, first.ID, descs[1].ID)
}

func TestFSStore_Delete(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	desc, err := s.Put(ctx, "pic.jpg", "image/jpeg", []byte("jpeg bytes"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, desc.ID))

	_, err = s.Get(ctx, desc.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, statErr := os.Stat(s.blobPath(desc.ID))
	assert.True(t, os.IsNotExist(statErr), "blob file should be removed")

	err = s.Delete(ctx, desc.ID)
	assert.True(t, errors.Is(err, ErrNotFound), "second delete should report absence")
}

func TestFSStore_ChecksumMismatch(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	desc, err := s.Put(ctx, "pic.png", "image/png", []byte("original payload"))
	require.NoError(t, err)

	// Overwrite the blob with a valid zstd frame of different content.
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	tampered := enc.EncodeAll([]byte("tampered payload"), nil)
	require.NoError(t, os.WriteFile(s.blobPath(desc.ID), tampered, 0600))

	_, err = s.Get(ctx, desc.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestFSStore_Compact(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSStore(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	kept, err := s.Put(ctx, "keep.png", "image/png", []byte("keep me"))
	require.NoError(t, err)

	// Orphan: a blob file with no index row.
	require.NoError(t, os.WriteFile(s.blobPath("orphan-id"), []byte("stray"), 0600))

	// Damaged: an index row whose blob vanished.
	lost, err := s.Put(ctx, "lost.png", "image/png", []byte("lose me"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(s.blobPath(lost.ID)))

	removed, damaged, err := s.Compact(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{lost.ID}, damaged)

	// The healthy resource is untouched.
	got, err := s.Get(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("keep me"), got)
}

func TestFSStore_ReopenPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFSStore(dir, nil)
	require.NoError(t, err)
	desc, err := s.Put(ctx, "persist.png", "image/png", []byte("durable"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewFSStore(dir, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, desc.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("durable"), got)

	listed, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, desc.ID, listed[0].ID)
	assert.Equal(t, desc.SHA256, listed[0].SHA256)
}
