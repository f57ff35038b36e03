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
// Package server exposes the media store and the handle cache over
// HTTP/REST plus an SSE event stream.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/reel/internal/csync"
	"github.com/teradata-labs/reel/pkg/handle"
	"github.com/teradata-labs/reel/pkg/store"
)

const (
	// DefaultLeaseTTL is how long an HTTP-granted lease lives before the
	// reaper releases it on the client's behalf.
	DefaultLeaseTTL = 5 * time.Minute
	// DefaultReapInterval is how often expired grants are swept.
	DefaultReapInterval = 30 * time.Second
	// DefaultMaxUploadBytes bounds a single ingest request body.
	DefaultMaxUploadBytes = 512 << 20
)

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig returns a permissive CORS configuration.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		Enabled:          true,
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           86400, // 24 hours
	}
}

// Config configures the daemon.
type Config struct {
	// Addr is the listen address, e.g. "127.0.0.1:7450".
	Addr string
	// CORS controls cross-origin headers; disabled means no CORS headers
	// at all.
	CORS CORSConfig
	// LeaseTTL is the lifetime of leases granted over HTTP.
	LeaseTTL time.Duration
	// ReapInterval is how often expired grants are released.
	ReapInterval time.Duration
	// MaxUploadBytes bounds a single ingest request body.
	MaxUploadBytes int64
}

// Server serves media payloads through cache-managed handles. Every byte
// sent to a client is read from a leased scratch file, never straight from
// the store, so the daemon exercises the same acquire/release discipline
// as an in-process consumer.
type Server struct {
	store  store.Store
	cache  *handle.Cache
	cfg    Config
	logger *zap.Logger

	httpServer *http.Server
	grants     *csync.Map[string, *grant]
	stop       chan struct{}
	reaperDone chan struct{}
	stopOnce   sync.Once
}

// New creates a Server over the given store and cache. Zero config values
// fall back to defaults. The grant reaper starts immediately; callers must
// Stop the server to shut it down even if Start is never reached.
func New(st store.Store, cache *handle.Cache, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = DefaultLeaseTTL
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = DefaultReapInterval
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}

	s := &Server{
		store:      st,
		cache:      cache,
		cfg:        cfg,
		logger:     logger,
		grants:     csync.NewMap[string, *grant](),
		stop:       make(chan struct{}),
		reaperDone: make(chan struct{}),
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0, // No timeout for SSE
			IdleTimeout:  120 * time.Second,
		},
	}
	go s.reapLoop()
	return s
}

// handler builds the route table. Split out so tests can drive the routes
// without a listener.
func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/media", s.handleMedia)
	mux.HandleFunc("/v1/media/", s.handleMediaByID)
	mux.HandleFunc("/v1/leases", s.handleLeaseList)
	mux.HandleFunc("/v1/leases/", s.handleLease)
	mux.HandleFunc("/v1/stats", s.handleStats)
	mux.HandleFunc("/v1/events", s.handleEvents)

	var h http.Handler = mux
	if s.cfg.CORS.Enabled {
		h = s.corsMiddleware(mux)
	}
	return h
}

// Start runs the daemon. It blocks until Stop is called or the listener
// fails.
func (s *Server) Start() error {
	s.httpServer.Handler = s.handler()

	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop gracefully stops the daemon: the listener drains within ctx, the
// reaper halts, and every outstanding grant is released back to the cache.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	err := s.httpServer.Shutdown(ctx)

	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.reaperDone
		s.releaseAllGrants()
	})
	return err
}

func (s *Server) releaseAllGrants() {
	var tokens []string
	for token := range s.grants.Seq2() {
		tokens = append(tokens, token)
	}
	for _, token := range tokens {
		if g, ok := s.grants.LoadAndDelete(token); ok {
			g.lease.Release()
		}
	}
	if len(tokens) > 0 {
		s.logger.Info("Released outstanding grants", zap.Int("count", len(tokens)))
	}
}

// corsMiddleware adds CORS headers to HTTP responses and answers preflight
// requests.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		if s.cfg.CORS.AllowCredentials {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if len(s.cfg.CORS.AllowedMethods) > 0 {
			w.Header().Set("Access-Control-Allow-Methods", strings.Join(s.cfg.CORS.AllowedMethods, ", "))
		}
		if len(s.cfg.CORS.AllowedHeaders) > 0 {
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(s.cfg.CORS.AllowedHeaders, ", "))
		}
		if len(s.cfg.CORS.ExposedHeaders) > 0 {
			w.Header().Set("Access-Control-Expose-Headers", strings.Join(s.cfg.CORS.ExposedHeaders, ", "))
		}
		if s.cfg.CORS.MaxAge > 0 {
			w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", s.cfg.CORS.MaxAge))
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowedOrigin checks if the origin is allowed and returns the header
// value to echo, or empty string if not.
func (s *Server) allowedOrigin(origin string) string {
	if origin == "" {
		return ""
	}
	for _, allowed := range s.cfg.CORS.AllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if allowed == origin {
			return origin
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
