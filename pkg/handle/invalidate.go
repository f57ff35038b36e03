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

// InvalidateUnreferenced destroys every entry whose reference count is
// zero, regardless of capacity, and returns the number destroyed.
// Referenced entries are untouched, making this the safe "free what you
// can" maintenance call.
func (c *Cache) InvalidateUnreferenced() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for el := c.access.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*entry)
		if e.refCount == 0 {
			c.destroyLocked(e, ReasonInvalidated)
			n++
		}
		el = prev
	}
	c.invalidations.Add(int64(n))
	return n
}

// InvalidateAll destroys every entry, referenced or not, and returns the
// number destroyed. Meant for teardown, where the caller guarantees no
// consumer still expects its handles to resolve.
func (c *Cache) InvalidateAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidateAllLocked()
}

func (c *Cache) invalidateAllLocked() int {
	n := 0
	for _, e := range c.entries {
		c.destroyLocked(e, ReasonInvalidated)
		n++
	}
	c.invalidations.Add(int64(n))
	return n
}

// InvalidateSpecific destroys the named entries even while they are
// referenced, and returns the number destroyed. Deletion wins over active
// display: when the durable resource is gone its handle must not outlive
// it, so live leases are left holding a dangling path. Each forced
// revocation is logged with the count of leases cut off. Unknown ids are
// skipped.
func (c *Cache) InvalidateSpecific(ids ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, id := range ids {
		e, ok := c.entries[id]
		if !ok {
			continue
		}
		if e.refCount > 0 {
			c.logger.Warn("Invalidating handle with live leases",
				zap.String("id", id),
				zap.Int("ref_count", e.refCount))
		}
		c.destroyLocked(e, ReasonInvalidated)
		n++
	}
	c.invalidations.Add(int64(n))
	return n
}
