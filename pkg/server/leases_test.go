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
package server

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_LeaseLifecycle(t *testing.T) {
	_, ts, cache := newTestServer(t, Config{})
	m := ingestMedia(t, ts, "shot.png", "image/png", []byte("pixels"))

	resp := doRequest(t, http.MethodPost, ts.URL+"/v1/leases/"+m.ID)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var g grant
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&g))
	resp.Body.Close()

	assert.NotEmpty(t, g.Token)
	assert.Equal(t, m.ID, g.ResourceID)
	assert.NotEmpty(t, g.URI)
	assert.FileExists(t, g.Path)
	assert.True(t, g.ExpiresAt.After(time.Now()))
	assert.Equal(t, 1, cache.Stats().Entries, "a granted lease must pin the handle")

	resp, err := http.Get(ts.URL + "/v1/leases")
	require.NoError(t, err)
	var grants []grant
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&grants))
	resp.Body.Close()
	require.Len(t, grants, 1)
	assert.Equal(t, g.Token, grants[0].Token)

	resp = doRequest(t, http.MethodDelete, ts.URL+"/v1/leases/"+g.Token)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, cache.Stats().Entries,
		"returning the only grant must destroy the handle")

	resp = doRequest(t, http.MethodDelete, ts.URL+"/v1/leases/"+g.Token)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "a token is single-use")
}

func TestServer_LeaseUnknownMedia(t *testing.T) {
	_, ts, _ := newTestServer(t, Config{})

	resp := doRequest(t, http.MethodPost, ts.URL+"/v1/leases/ghost")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ReapExpiredGrants(t *testing.T) {
	srv, ts, cache := newTestServer(t, Config{LeaseTTL: time.Minute})
	m := ingestMedia(t, ts, "shot.png", "image/png", []byte("pixels"))

	resp := doRequest(t, http.MethodPost, ts.URL+"/v1/leases/"+m.ID)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, 0, srv.reapExpired(time.Now()), "fresh grants must survive a sweep")
	assert.Equal(t, 1, cache.Stats().Entries)

	reaped := srv.reapExpired(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 1, reaped)
	assert.Equal(t, 0, srv.grants.Len())
	assert.Equal(t, 0, cache.Stats().Entries,
		"reaping must release the abandoned lease")
}

func TestServer_DeleteInvalidatesGrantedHandles(t *testing.T) {
	_, ts, cache := newTestServer(t, Config{})
	m := ingestMedia(t, ts, "shot.png", "image/png", []byte("pixels"))

	resp := doRequest(t, http.MethodPost, ts.URL+"/v1/leases/"+m.ID)
	var g grant
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&g))
	resp.Body.Close()

	resp = doRequest(t, http.MethodDelete, ts.URL+"/v1/media/"+m.ID)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, 0, cache.Stats().Entries, "deletion wins over an active grant")
	assert.NoFileExists(t, g.Path)
	assert.Equal(t, int64(1), cache.Stats().Invalidations)

	// Returning the orphaned grant afterwards is harmless.
	resp = doRequest(t, http.MethodDelete, ts.URL+"/v1/leases/"+g.Token)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
