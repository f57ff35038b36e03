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
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMaterializer(t *testing.T, src BlobSource, attempts int, base time.Duration) *materializer {
	t.Helper()
	return &materializer{
		source:      src,
		scratchDir:  t.TempDir(),
		maxAttempts: attempts,
		baseDelay:   base,
		maxDelay:    base * 8,
		logger:      zap.NewNop(),
	}
}

func TestMaterializer_WritesScratchFile(t *testing.T) {
	src := newStubStore()
	src.put("clip", []byte("frames"))
	m := newTestMaterializer(t, src, 3, time.Millisecond)

	h, err := m.materialize(context.Background(), "clip")
	require.NoError(t, err)
	require.NotNil(t, h)

	data, err := os.ReadFile(h.Path())
	require.NoError(t, err)
	assert.Equal(t, []byte("frames"), data)
	assert.Equal(t, "file://"+h.Path(), h.URI())
	assert.Equal(t, int64(len("frames")), h.Size())
	assert.Equal(t, "clip", h.ResourceID())
}

func TestMaterializer_UniqueScratchPerCall(t *testing.T) {
	src := newStubStore()
	src.put("clip", []byte("frames"))
	m := newTestMaterializer(t, src, 3, time.Millisecond)

	ctx := context.Background()
	h1, err := m.materialize(ctx, "clip")
	require.NoError(t, err)
	h2, err := m.materialize(ctx, "clip")
	require.NoError(t, err)

	assert.NotEqual(t, h1.Path(), h2.Path(),
		"repeated materializations must never collide on disk")
}

func TestMaterializer_AbsenceIsTerminal(t *testing.T) {
	m := newTestMaterializer(t, newStubStore(), 5, time.Millisecond)

	h, err := m.materialize(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, h)
	assert.Equal(t, int64(0), m.retries.Load())
}

func TestMaterializer_RetriesThenSucceeds(t *testing.T) {
	src := newStubStore()
	src.put("clip", []byte("frames"))
	src.failures = 1
	m := newTestMaterializer(t, src, 3, 10*time.Millisecond)

	h, err := m.materialize(context.Background(), "clip")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, 2, src.callCount())
	assert.Equal(t, int64(1), m.retries.Load())
}

func TestMaterializer_Exhaustion(t *testing.T) {
	src := newStubStore()
	src.put("clip", []byte("frames"))
	src.failures = 100
	m := newTestMaterializer(t, src, 4, time.Millisecond)

	h, err := m.materialize(context.Background(), "clip")
	assert.Nil(t, h)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaterializationExhausted))
	assert.True(t, errors.Is(err, src.failErr))
	assert.Equal(t, 4, src.callCount())
	assert.Equal(t, int64(3), m.retries.Load())
}

func TestMaterializer_ContextCancelsBackoff(t *testing.T) {
	src := newStubStore()
	src.put("clip", []byte("frames"))
	src.failures = 100
	m := newTestMaterializer(t, src, 3, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	started := time.Now()
	h, err := m.materialize(ctx, "clip")
	assert.Nil(t, h)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(started), time.Second,
		"cancellation must cut the backoff wait short")
	assert.Equal(t, 1, src.callCount())
}
