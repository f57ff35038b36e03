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
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teradata-labs/reel/pkg/handle"
)

// grant is a cache lease held on behalf of an HTTP client that cannot
// scope its usage to a single request. Grants expire: the reaper releases
// any lease the client has not returned by the deadline, so a crashed
// client cannot pin handles forever.
type grant struct {
	Token      string    `json:"token"`
	ResourceID string    `json:"resource_id"`
	URI        string    `json:"uri"`
	Path       string    `json:"path"`
	ExpiresAt  time.Time `json:"expires_at"`

	lease *handle.Lease
}

// handleLeaseList serves GET /v1/leases with the currently active grants.
func (s *Server) handleLeaseList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	out := make([]*grant, 0, s.grants.Len())
	for g := range s.grants.Values() {
		out = append(out, g)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleLease serves /v1/leases/{arg}: POST treats arg as a resource id
// and grants a lease on it; DELETE treats arg as a grant token and
// releases it.
func (s *Server) handleLease(w http.ResponseWriter, r *http.Request) {
	arg := strings.TrimPrefix(r.URL.Path, "/v1/leases/")
	if arg == "" || strings.Contains(arg, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodPost:
		s.grantLease(w, r, arg)
	case http.MethodDelete:
		s.releaseLease(w, arg)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) grantLease(w http.ResponseWriter, r *http.Request, id string) {
	lease, err := s.cache.Acquire(r.Context(), id)
	if err != nil {
		s.writeAcquireError(w, id, err)
		return
	}
	if lease == nil {
		http.Error(w, "media not found", http.StatusNotFound)
		return
	}

	g := &grant{
		Token:      uuid.NewString(),
		ResourceID: id,
		URI:        lease.URI(),
		Path:       lease.Path(),
		ExpiresAt:  time.Now().Add(s.cfg.LeaseTTL),
		lease:      lease,
	}
	s.grants.Set(g.Token, g)

	s.logger.Debug("Granted lease",
		zap.String("token", g.Token),
		zap.String("id", id),
		zap.Time("expires_at", g.ExpiresAt))
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) releaseLease(w http.ResponseWriter, token string) {
	g, ok := s.grants.LoadAndDelete(token)
	if !ok {
		http.Error(w, "unknown lease token", http.StatusNotFound)
		return
	}
	g.lease.Release()

	s.logger.Debug("Released lease",
		zap.String("token", token),
		zap.String("id", g.ResourceID))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reapLoop() {
	defer close(s.reaperDone)

	ticker := time.NewTicker(s.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.reapExpired(now)
		}
	}
}

// reapExpired releases every grant past its deadline and returns how many
// it reclaimed. LoadAndDelete guards against releasing a grant the client
// returned between the scan and the sweep.
func (s *Server) reapExpired(now time.Time) int {
	var expired []string
	for token, g := range s.grants.Seq2() {
		if now.After(g.ExpiresAt) {
			expired = append(expired, token)
		}
	}

	n := 0
	for _, token := range expired {
		if g, ok := s.grants.LoadAndDelete(token); ok {
			g.lease.Release()
			n++
		}
	}
	if n > 0 {
		s.logger.Info("Reaped expired leases", zap.Int("count", n))
	}
	return n
}
