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
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store for tests and throwaway daemons. Contents
// are lost on process exit.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	descs map[string]Descriptor
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		blobs: make(map[string][]byte),
		descs: make(map[string]Descriptor),
	}
}

// Put ingests a payload under a freshly assigned id.
func (s *MemStore) Put(_ context.Context, name, mime string, data []byte) (Descriptor, error) {
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

	payload := make([]byte, len(data))
	copy(payload, data)
	s.blobs[desc.ID] = payload
	s.descs[desc.ID] = desc

	return desc, nil
}

// Get returns a copy of the payload for id.
func (s *MemStore) Get(_ context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Describe returns the descriptor for id.
func (s *MemStore) Describe(_ context.Context, id string) (Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	desc, ok := s.descs[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return desc, nil
}

// List returns all descriptors, newest first.
func (s *MemStore) List(_ context.Context) ([]Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	descs := make([]Descriptor, 0, len(s.descs))
	for _, desc := range s.descs {
		descs = append(descs, desc)
	}
	sort.Slice(descs, func(i, j int) bool {
		if !descs[i].CreatedAt.Equal(descs[j].CreatedAt) {
			return descs[i].CreatedAt.After(descs[j].CreatedAt)
		}
		return descs[i].ID < descs[j].ID
	})
	return descs, nil
}

// Delete removes the resource.
func (s *MemStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.descs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.descs, id)
	delete(s.blobs, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemStore) Close() error {
	return nil
}
