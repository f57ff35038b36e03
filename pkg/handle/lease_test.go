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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLease_ReleaseIsIdempotent(t *testing.T) {
	src := newStubStore()
	src.put("clip", []byte("frames"))
	c := newTestCache(t, src, Config{})

	ctx := context.Background()
	mine, err := c.Acquire(ctx, "clip")
	require.NoError(t, err)
	theirs, err := c.Acquire(ctx, "clip")
	require.NoError(t, err)

	// A sloppy consumer releasing twice must not steal the other holder's
	// reference.
	mine.Release()
	mine.Release()
	mine.Release()

	assert.True(t, isCached(c, "clip"))
	assert.Equal(t, 1, refCount(c, "clip"))
	assert.FileExists(t, theirs.Path())

	theirs.Release()
	assert.False(t, isCached(c, "clip"))
}

func TestLease_ConcurrentReleaseDecrementsOnce(t *testing.T) {
	src := newStubStore()
	src.put("clip", []byte("frames"))
	c := newTestCache(t, src, Config{})

	ctx := context.Background()
	hold, err := c.Acquire(ctx, "clip")
	require.NoError(t, err)
	racy, err := c.Acquire(ctx, "clip")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			racy.Release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, refCount(c, "clip"))
	hold.Release()
}

func TestLease_Accessors(t *testing.T) {
	src := newStubStore()
	src.put("clip", []byte("frames"))
	c := newTestCache(t, src, Config{})

	lease, err := c.Acquire(context.Background(), "clip")
	require.NoError(t, err)
	defer lease.Release()

	h := lease.Handle()
	require.NotNil(t, h)
	assert.Equal(t, h.ResourceID(), lease.ResourceID())
	assert.Equal(t, h.URI(), lease.URI())
	assert.Equal(t, h.Path(), lease.Path())
}
