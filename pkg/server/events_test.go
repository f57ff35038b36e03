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
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_EventsStream(t *testing.T) {
	_, ts, _ := newTestServer(t, Config{})
	m := ingestMedia(t, ts, "shot.png", "image/png", []byte("pixels"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Drive one materialize/destroy cycle while the stream is attached.
	go func() {
		time.Sleep(100 * time.Millisecond)
		r, err := http.Get(ts.URL + "/v1/media/" + m.ID)
		if err == nil {
			_, _ = io.Copy(io.Discard, r.Body)
			r.Body.Close()
		}
	}()

	var got []eventJSON
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() && len(got) < 2 {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev eventJSON
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		got = append(got, ev)
	}

	require.Len(t, got, 2, "one acquire/release cycle must emit two events")
	assert.Equal(t, "created", got[0].Type)
	assert.Equal(t, m.ID, got[0].ResourceID)
	assert.True(t, strings.HasPrefix(got[0].URI, "file://"))
	assert.Equal(t, "deleted", got[1].Type)
	assert.Equal(t, "released", got[1].Reason)
}

func TestServer_EventsRejectsPost(t *testing.T) {
	_, ts, _ := newTestServer(t, Config{})

	resp, err := http.Post(ts.URL+"/v1/events", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
