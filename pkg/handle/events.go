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

import "github.com/teradata-labs/reel/internal/pubsub"

// Reason says why a handle was destroyed.
type Reason string

const (
	// ReasonReleased marks a handle destroyed because its last lease was
	// released and the cache destroys unreferenced handles eagerly.
	ReasonReleased Reason = "released"
	// ReasonEvicted marks a handle reclaimed by the capacity trim.
	ReasonEvicted Reason = "evicted"
	// ReasonInvalidated marks a handle removed by an explicit
	// invalidation call.
	ReasonInvalidated Reason = "invalidated"
)

// Notice is the payload of cache lifecycle events. Materializations are
// published as created events; destructions as deleted events carrying the
// Reason the handle was revoked.
type Notice struct {
	ResourceID string `json:"resource_id"`
	URI        string `json:"uri"`
	Reason     Reason `json:"reason,omitempty"`
}

// Subscribe registers a listener for cache lifecycle events. Events are
// dropped rather than block cache operations when a listener falls behind.
func (c *Cache) Subscribe() chan pubsub.Event[Notice] {
	return c.broker.Subscribe()
}

// Unsubscribe removes a listener and closes its channel.
func (c *Cache) Unsubscribe(ch chan pubsub.Event[Notice]) {
	c.broker.Unsubscribe(ch)
}

func (c *Cache) publish(ev pubsub.Event[Notice]) {
	c.broker.Publish(ev)
}

func pubDeleted(id, uri string, reason Reason) pubsub.Event[Notice] {
	return pubsub.NewDeletedEvent(Notice{ResourceID: id, URI: uri, Reason: reason})
}
