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
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/reel/pkg/handle"
	"github.com/teradata-labs/reel/pkg/store"
)

type mediaJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MIME      string    `json:"mime"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"created_at"`
}

func toMediaJSON(d store.Descriptor) mediaJSON {
	return mediaJSON{
		ID:        d.ID,
		Name:      d.Name,
		MIME:      d.MIME,
		Size:      d.Size,
		SHA256:    d.SHA256,
		CreatedAt: d.CreatedAt,
	}
}

// handleMedia serves /v1/media: GET lists the catalog, POST ingests a new
// payload.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listMedia(w, r)
	case http.MethodPost:
		s.ingestMedia(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) listMedia(w http.ResponseWriter, r *http.Request) {
	descs, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("Failed to list media", zap.Error(err))
		http.Error(w, "failed to list media", http.StatusInternalServerError)
		return
	}

	out := make([]mediaJSON, 0, len(descs))
	for _, d := range descs {
		out = append(out, toMediaJSON(d))
	}
	writeJSON(w, http.StatusOK, out)
}

// ingestMedia accepts either a multipart form with a "file" field or a raw
// body with a Content-Type header. The stored name comes from the form
// file name or the "name" query parameter.
func (s *Server) ingestMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	name, mime, data, err := readUpload(r)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, fmt.Sprintf("invalid upload: %v", err), http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		http.Error(w, "empty payload", http.StatusBadRequest)
		return
	}

	desc, err := s.store.Put(r.Context(), name, mime, data)
	if err != nil {
		s.logger.Error("Failed to store media", zap.String("name", name), zap.Error(err))
		http.Error(w, "failed to store media", http.StatusInternalServerError)
		return
	}

	s.logger.Info("Ingested media",
		zap.String("id", desc.ID),
		zap.String("name", desc.Name),
		zap.Int64("size", desc.Size))
	writeJSON(w, http.StatusCreated, toMediaJSON(desc))
}

func readUpload(r *http.Request) (string, string, []byte, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", "", nil, err
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", "", nil, err
		}
		mime := header.Header.Get("Content-Type")
		if mime == "" {
			mime = http.DetectContentType(data)
		}
		return header.Filename, mime, data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", "", nil, err
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	return name, ct, data, nil
}

// handleMediaByID serves /v1/media/{id}: GET streams the payload through a
// leased handle, DELETE removes the resource and invalidates its handles.
func (s *Server) handleMediaByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/media/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.streamMedia(w, r, id)
	case http.MethodDelete:
		s.deleteMedia(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// streamMedia holds a lease for exactly the duration of the response so
// the handle cannot be evicted mid-transfer.
func (s *Server) streamMedia(w http.ResponseWriter, r *http.Request, id string) {
	lease, err := s.cache.Acquire(r.Context(), id)
	if err != nil {
		s.writeAcquireError(w, id, err)
		return
	}
	if lease == nil {
		http.Error(w, "media not found", http.StatusNotFound)
		return
	}
	defer lease.Release()

	if desc, err := s.store.Describe(r.Context(), id); err == nil {
		w.Header().Set("Content-Type", desc.MIME)
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", desc.Name))
	}

	// ServeFile picks up range requests and conditional headers for free.
	http.ServeFile(w, r, lease.Path())
}

func (s *Server) deleteMedia(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "media not found", http.StatusNotFound)
			return
		}
		s.logger.Error("Failed to delete media", zap.String("id", id), zap.Error(err))
		http.Error(w, "failed to delete media", http.StatusInternalServerError)
		return
	}

	invalidated := s.cache.InvalidateSpecific(id)
	s.logger.Info("Deleted media",
		zap.String("id", id),
		zap.Int("handles_invalidated", invalidated))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeAcquireError(w http.ResponseWriter, id string, err error) {
	s.logger.Error("Failed to acquire handle", zap.String("id", id), zap.Error(err))
	switch {
	case errors.Is(err, handle.ErrMaterializationExhausted):
		http.Error(w, "media temporarily unavailable", http.StatusBadGateway)
	case errors.Is(err, handle.ErrClosed):
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
