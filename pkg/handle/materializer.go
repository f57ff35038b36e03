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
package handle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teradata-labs/reel/pkg/store"
)

const scratchExt = ".bin"

// materializer turns a resource id into a fresh handle: it fetches the
// blob from the store, retrying transient failures with exponential
// backoff, and writes it to a unique scratch file. It owns no cache state.
type materializer struct {
	source      BlobSource
	scratchDir  string
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	logger      *zap.Logger

	retries atomic.Int64
}

// materialize resolves id to a handle. A (nil, nil) return means the store
// confirmed the resource does not exist; absence is terminal and never
// retried. Any other store failure is retried up to maxAttempts total
// attempts, and exhaustion is reported as ErrMaterializationExhausted
// wrapping the last cause. The backoff waits honor ctx.
func (m *materializer) materialize(ctx context.Context, id string) (*Handle, error) {
	var lastErr error
	delay := m.baseDelay

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		if attempt > 1 {
			m.logger.Warn("Materialization attempt failed, retrying",
				zap.String("id", id),
				zap.Int("attempt", attempt-1),
				zap.Int("max_attempts", m.maxAttempts),
				zap.Duration("delay", delay),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("materialization of %s interrupted: %w", id, ctx.Err())
			case <-time.After(delay):
			}
			m.retries.Add(1)

			delay *= 2
			if delay > m.maxDelay {
				delay = m.maxDelay
			}
		}

		data, err := m.source.Get(ctx, id)
		if err == nil {
			return m.wrap(id, data)
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w for %s after %d attempts: %w",
		ErrMaterializationExhausted, id, m.maxAttempts, lastErr)
}

// wrap writes the payload to a unique scratch file and returns its handle.
// The file name carries the resource id for debuggability plus a random
// suffix so repeated materializations of the same id never collide.
func (m *materializer) wrap(id string, data []byte) (*Handle, error) {
	path := filepath.Join(m.scratchDir, id+"-"+uuid.NewString()+scratchExt)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write scratch file for %s: %w", id, err)
	}
	return &Handle{
		resourceID: id,
		path:       path,
		uri:        fileURI(path),
		size:       int64(len(data)),
	}, nil
}
