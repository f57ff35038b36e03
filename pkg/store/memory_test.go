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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_RoundTrip(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	ctx := context.Background()
	desc, err := s.Put(ctx, "shot.png", "image/png", []byte("pixels"))
	require.NoError(t, err)

	got, err := s.Get(ctx, desc.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("pixels"), got)

	described, err := s.Describe(ctx, desc.ID)
	require.NoError(t, err)
	assert.Equal(t, desc, described)

	descs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, descs, 1)

	require.NoError(t, s.Delete(ctx, desc.ID))
	_, err = s.Get(ctx, desc.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	err = s.Delete(ctx, desc.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemStore_GetReturnsCopy(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	ctx := context.Background()
	desc, err := s.Put(ctx, "shot.png", "image/png", []byte("pixels"))
	require.NoError(t, err)

	got, err := s.Get(ctx, desc.ID)
	require.NoError(t, err)
	got[0] = 'X'

	again, err := s.Get(ctx, desc.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("pixels"), again, "mutating a returned payload must not affect the store")
}
