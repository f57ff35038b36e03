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
// Package handle provides a reference-counted, capacity-bounded cache of
// ephemeral media handles materialized on demand from a durable resource
// store.
//
// A consumer calls Acquire to obtain a Lease on a handle: a scratch file
// holding the decoded payload, addressed by a file:// URI. Concurrent
// misses for the same resource share a single materialization. By default
// the handle is destroyed the moment its last lease is released; the
// capacity bound is a backstop that evicts least-recently-used
// unreferenced entries when collaborators leak leases.
package handle

import (
	"container/list"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/reel/internal/pubsub"
)

const (
	// DefaultCapacity is the soft bound on concurrently cached entries.
	DefaultCapacity = 50
	// DefaultMaxAttempts is the total number of materialization attempts
	// per miss, including the first.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay seeds the exponential backoff between attempts.
	DefaultBaseDelay = 500 * time.Millisecond
	// DefaultMaxDelay caps the backoff between attempts.
	DefaultMaxDelay = 2 * time.Second
)

// BlobSource is the slice of the durable store the cache materializes
// from. store.Store satisfies it.
type BlobSource interface {
	Get(ctx context.Context, id string) ([]byte, error)
}

// Config configures a Cache. Zero values fall back to defaults.
type Config struct {
	// Capacity is the soft upper bound on cached entries. Referenced
	// entries are never evicted, so the cache can exceed Capacity while
	// consumers hold leases.
	Capacity int

	// MaxAttempts is the total number of materialization attempts per
	// miss. Store-confirmed absence is terminal and never retried.
	MaxAttempts int

	// BaseDelay is the backoff before the first retry; it doubles per
	// attempt up to MaxDelay.
	BaseDelay time.Duration

	// MaxDelay caps the backoff between attempts.
	MaxDelay time.Duration

	// ScratchDir is where handle scratch files are written. Defaults to a
	// reel-handles directory under the OS temp dir.
	ScratchDir string

	// RetainReleased keeps zero-reference entries cached until capacity
	// pressure or an explicit invalidation reclaims them, instead of
	// destroying each handle the moment its last lease is released. Suits
	// consumers that re-acquire recently shown media, such as a scrolling
	// gallery.
	RetainReleased bool

	// Logger overrides the process-global logger.
	Logger *zap.Logger
}

// entry is the cache bookkeeping for one materialized handle. Owned
// exclusively by the Cache and guarded by its mutex.
type entry struct {
	id         string
	handle     *Handle
	refCount   int
	lruElement *list.Element
}

// flight is one in-progress materialization shared by every concurrent
// Acquire of the same id. waiters counts the callers whose reference the
// completed entry must honor; handle and err are written once, under the
// cache mutex, before done is closed.
type flight struct {
	done    chan struct{}
	handle  *Handle
	err     error
	waiters int
}

// Cache is the handle cache façade. All bookkeeping (entry map, access
// order, reference counts) is guarded by one mutex; only materialization
// runs outside it.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	access  *list.List // front = most recently used
	flights map[string]*flight
	closed  bool

	mat    *materializer
	cfg    Config
	logger *zap.Logger
	broker *pubsub.Broker[pubsub.Event[Notice]]

	hits             atomic.Int64
	misses           atomic.Int64
	materializations atomic.Int64
	evictions        atomic.Int64
	invalidations    atomic.Int64
	releases         atomic.Int64
}

// New creates a Cache that materializes handles from source. The scratch
// directory is created if needed.
func New(source BlobSource, cfg Config) (*Cache, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = filepath.Join(os.TempDir(), "reel-handles")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.ScratchDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	return &Cache{
		entries: make(map[string]*entry),
		access:  list.New(),
		flights: make(map[string]*flight),
		mat: &materializer{
			source:      source,
			scratchDir:  cfg.ScratchDir,
			maxAttempts: cfg.MaxAttempts,
			baseDelay:   cfg.BaseDelay,
			maxDelay:    cfg.MaxDelay,
			logger:      cfg.Logger,
		},
		cfg:    cfg,
		logger: cfg.Logger,
		broker: pubsub.NewBroker[pubsub.Event[Notice]](0),
	}, nil
}

// Acquire returns a lease on the handle for id, materializing it from the
// store on a miss. A (nil, nil) return means the store confirmed the
// resource does not exist; no entry is created and it is not an error.
// Concurrent misses for the same id share one materialization, and each
// caller that stays until it completes holds exactly one reference on the
// resulting entry. Every returned lease must be disposed of with Release.
func (c *Cache) Acquire(ctx context.Context, id string) (*Lease, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}

	if e, ok := c.entries[id]; ok {
		e.refCount++
		c.access.MoveToFront(e.lruElement)
		c.hits.Add(1)
		lease := &Lease{cache: c, handle: e.handle}
		c.mu.Unlock()
		return lease, nil
	}

	c.misses.Add(1)

	f, ok := c.flights[id]
	if ok {
		f.waiters++
	} else {
		f = &flight{done: make(chan struct{}), waiters: 1}
		c.flights[id] = f
		// The flight is detached from the caller: cancellation makes
		// callers stop waiting, never aborts the materialization itself.
		go c.runFlight(context.WithoutCancel(ctx), id, f)
	}
	c.mu.Unlock()

	return c.awaitFlight(ctx, id, f)
}

// runFlight materializes id once on behalf of every waiter and installs
// the result. The fetch runs outside the cache lock; only the completion
// bookkeeping is locked.
func (c *Cache) runFlight(ctx context.Context, id string, f *flight) {
	h, err := c.mat.materialize(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.flights, id)

	switch {
	case c.closed:
		// Completed into a torn-down cache: nothing to install.
		if h != nil {
			c.revoke(h)
		}
		f.err = ErrClosed
	case err != nil:
		f.err = err
	case h == nil:
		// Store-confirmed absence; waiters resolve to a nil lease.
	default:
		c.materializations.Add(1)
		f.handle = h
		e := &entry{id: id, handle: h, refCount: f.waiters}
		e.lruElement = c.access.PushFront(e)
		c.entries[id] = e
		c.publish(pubsub.NewCreatedEvent(Notice{ResourceID: id, URI: h.uri}))
		if e.refCount == 0 && !c.cfg.RetainReleased {
			// Every waiter gave up before completion.
			c.destroyLocked(e, ReasonReleased)
		} else {
			c.trimLocked()
		}
	}

	close(f.done)
}

// awaitFlight blocks until the shared materialization for id completes or
// ctx is cancelled. A caller that stops waiting withdraws its reference:
// from the pending waiter count, or, if completion won the race, from the
// entry the flight installed, provided that entry is still the cached one.
func (c *Cache) awaitFlight(ctx context.Context, id string, f *flight) (*Lease, error) {
	select {
	case <-f.done:
		if f.err != nil {
			return nil, f.err
		}
		if f.handle == nil {
			return nil, nil
		}
		return &Lease{cache: c, handle: f.handle}, nil
	case <-ctx.Done():
		c.mu.Lock()
		if cur, ok := c.flights[id]; ok && cur == f {
			f.waiters--
		} else if f.handle != nil {
			// A finished flight credited this waiter only in success, and
			// the credit died with the entry if it was since destroyed:
			// withdraw only from the entry this flight installed.
			c.releaseHandleLocked(f.handle)
		}
		c.mu.Unlock()
		return nil, fmt.Errorf("acquire of %s abandoned: %w", id, ctx.Err())
	}
}

// Release decrements the reference count for id. Releasing an untracked
// id, or one already at zero, is a silent no-op so consumers can unwind in
// any order. When the count reaches zero the handle is destroyed
// immediately unless the cache retains released entries. Prefer
// Lease.Release, which additionally guards against one consumer
// double-releasing and against an orphaned release debiting an entry
// re-materialized after a forced invalidation.
func (c *Cache) Release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked(id)
}

// releaseHandle withdraws one reference from the entry for h's resource,
// but only while h is still the handle the cache holds for it. References
// on a destroyed generation die with it; they are never transferred to a
// replacement entry.
func (c *Cache) releaseHandle(h *Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseHandleLocked(h)
}

func (c *Cache) releaseHandleLocked(h *Handle) {
	if e, ok := c.entries[h.resourceID]; ok && e.handle == h {
		c.releaseLocked(h.resourceID)
	}
}

func (c *Cache) releaseLocked(id string) {
	e, ok := c.entries[id]
	if !ok || e.refCount == 0 {
		return
	}
	e.refCount--
	c.releases.Add(1)
	if e.refCount == 0 && !c.cfg.RetainReleased {
		c.destroyLocked(e, ReasonReleased)
	}
}

// Len returns the number of currently cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close destroys every entry and shuts the cache down; subsequent Acquire
// calls fail with ErrClosed. In-flight materializations complete in the
// background and their handles are revoked on arrival.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	n := c.invalidateAllLocked()
	c.mu.Unlock()

	c.broker.Close()
	c.logger.Debug("Handle cache closed", zap.Int("destroyed", n))
	return nil
}
