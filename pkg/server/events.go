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
	"fmt"
	"net/http"

	"github.com/teradata-labs/reel/internal/pubsub"
)

type eventJSON struct {
	Type       string `json:"type"`
	ResourceID string `json:"resource_id"`
	URI        string `json:"uri"`
	Reason     string `json:"reason,omitempty"`
}

// handleEvents streams cache lifecycle events as SSE. Slow consumers miss
// events rather than stall the cache; this is a monitoring feed, not a
// journal.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	flusher.Flush()

	events := s.cache.Subscribe()
	defer s.cache.Unsubscribe(events)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				// Cache closed; the stream ends with it.
				return
			}
			data, err := json.Marshal(eventJSON{
				Type:       eventTypeName(ev.Type),
				ResourceID: ev.Payload.ResourceID,
				URI:        ev.Payload.URI,
				Reason:     string(ev.Payload.Reason),
			})
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func eventTypeName(t pubsub.EventType) string {
	switch t {
	case pubsub.CreatedEvent:
		return "created"
	case pubsub.UpdatedEvent:
		return "updated"
	case pubsub.DeletedEvent:
		return "deleted"
	default:
		return "unknown"
	}
}
