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

import "go.uber.org/zap"

// trimLocked enforces the capacity bound after an insertion. It scans from
// the least-recently-used end and destroys zero-reference entries until
// the cache is back within capacity or the scan is exhausted. Referenced
// entries are skipped, which makes the bound soft: the cache may exceed
// capacity while consumers keep handles leased. Caller must hold c.mu.
func (c *Cache) trimLocked() {
	for el := c.access.Back(); el != nil && len(c.entries) > c.cfg.Capacity; {
		prev := el.Prev()
		e := el.Value.(*entry)
		// Reference counts are read here, at destruction time, never from
		// an earlier snapshot.
		if e.refCount == 0 {
			c.destroyLocked(e, ReasonEvicted)
			c.evictions.Add(1)
		}
		el = prev
	}
}

// destroyLocked removes e from the cache and revokes its handle. The entry
// map and the handle's validity change together: an id is tracked exactly
// as long as its scratch file exists. Caller must hold c.mu.
func (c *Cache) destroyLocked(e *entry, reason Reason) {
	c.access.Remove(e.lruElement)
	delete(c.entries, e.id)
	c.revoke(e.handle)
	c.publish(pubDeleted(e.id, e.handle.uri, reason))
}

// revoke deletes the scratch file behind h. Failures are logged rather
// than surfaced; the entry is already untracked at this point.
func (c *Cache) revoke(h *Handle) {
	if err := h.revoke(); err != nil {
		c.logger.Warn("Failed to remove handle scratch file",
			zap.String("id", h.resourceID),
			zap.String("path", h.path),
			zap.Error(err))
	}
}
