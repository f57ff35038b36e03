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
// Package store provides durable persistence for binary media resources.
//
// A Store owns the bytes and the metadata of saved media (images, videos).
// It knows nothing about handles or caching; the handle cache sits on top
// and derives ephemeral scratch files from stored blobs on demand.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a resource id is not present in the store.
// Callers distinguish absence from I/O failure with errors.Is.
var ErrNotFound = errors.New("resource not found")

// Descriptor describes a stored resource without its payload.
type Descriptor struct {
	// ID is the opaque, stable identifier assigned at ingest.
	ID string
	// Name is the display name the resource was ingested under.
	Name string
	// MIME is the detected content type.
	MIME string
	// Size is the uncompressed payload size in bytes.
	Size int64
	// SHA256 is the hex digest of the uncompressed payload.
	SHA256 string
	// CreatedAt is the ingest time.
	CreatedAt time.Time
}

// Store is the durable resource store consumed by the handle cache, the
// CLI, and the HTTP daemon.
type Store interface {
	// Put ingests a payload under a new id and returns its descriptor.
	Put(ctx context.Context, name, mime string, data []byte) (Descriptor, error)

	// Get returns the payload for id, or ErrNotFound.
	Get(ctx context.Context, id string) ([]byte, error)

	// Describe returns the descriptor for id, or ErrNotFound.
	Describe(ctx context.Context, id string) (Descriptor, error)

	// List returns descriptors for all stored resources, newest first.
	List(ctx context.Context) ([]Descriptor, error)

	// Delete removes the resource and its payload, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Close releases store resources.
	Close() error
}
