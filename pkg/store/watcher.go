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
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// RemovalCallback is called with the resource id whose blob disappeared
// from the blob directory.
type RemovalCallback func(id string)

// WatcherConfig configures blob-directory change watching.
type WatcherConfig struct {
	DebounceMs int             // Debounce delay in milliseconds (default: 500ms)
	Logger     *zap.Logger     // Logger for events
	OnRemove   RemovalCallback // Callback for externally removed blobs
}

// Watcher observes the blob directory of an FSStore and reports blobs that
// vanish behind the store's back, so cached handles derived from them can
// be invalidated. Rapid events for the same file are debounced.
type Watcher struct {
	watcher *fsnotify.Watcher
	blobDir string
	config  WatcherConfig
	logger  *zap.Logger

	// Debouncer to handle rapid-fire changes
	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	// Lifecycle
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	stopMu  sync.Mutex
}

// NewWatcher creates a watcher over the store's blob directory.
func NewWatcher(s *FSStore, config WatcherConfig) (*Watcher, error) {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.DebounceMs == 0 {
		config.DebounceMs = 500
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		watcher:        watcher,
		blobDir:        s.BlobDir(),
		config:         config,
		logger:         config.Logger,
		debounceTimers: make(map[string]*time.Timer),
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}, nil
}

// Start begins watching for blob file changes.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.blobDir); err != nil {
		return fmt.Errorf("failed to watch blob directory: %w", err)
	}

	w.logger.Info("Blob watcher started",
		zap.String("directory", w.blobDir),
		zap.Int("debounce_ms", w.config.DebounceMs))

	w.stopMu.Lock()
	w.started = true
	w.stopMu.Unlock()

	go w.watchLoop(ctx)
	return nil
}

// Stop stops the watcher and releases the underlying filesystem watcher.
// It is safe to call on a watcher that never started, or whose Start
// failed; only the descriptor is closed then.
func (w *Watcher) Stop() error {
	w.stopMu.Lock()
	defer w.stopMu.Unlock()

	if w.stopped {
		return nil
	}

	w.stopped = true
	close(w.stopCh)
	if w.started {
		<-w.doneCh // Wait for watch loop to finish
	}

	return w.watcher.Close()
}

// watchLoop is the main event loop for file watching.
func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			w.logger.Debug("Blob watcher stopped")
			return

		case <-ctx.Done():
			w.logger.Debug("Blob watcher context cancelled")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				w.logger.Warn("Blob watcher events channel closed")
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.logger.Warn("Blob watcher errors channel closed")
				return
			}
			w.logger.Error("Blob watcher error", zap.Error(err))
		}
	}
}

// handleEvent processes a single fsnotify event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Only removals matter: a blob deleted or renamed away invalidates
	// any handle derived from it.
	if event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	filename := filepath.Base(event.Name)
	if !strings.HasSuffix(filename, blobExt) || filename[0] == '.' {
		return
	}
	id := strings.TrimSuffix(filename, blobExt)

	w.debounceRemoval(id)
}

// debounceRemoval debounces rapid events for the same blob.
func (w *Watcher) debounceRemoval(id string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, exists := w.debounceTimers[id]; exists {
		timer.Stop()
	}

	w.debounceTimers[id] = time.AfterFunc(
		time.Duration(w.config.DebounceMs)*time.Millisecond,
		func() {
			w.logger.Info("Blob removed externally", zap.String("id", id))
			if w.config.OnRemove != nil {
				w.config.OnRemove(id)
			}

			w.debounceMu.Lock()
			delete(w.debounceTimers, id)
			w.debounceMu.Unlock()
		},
	)
}
