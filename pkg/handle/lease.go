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

import "sync"

// Lease is one consumer's hold on a cached handle. Acquire hands every
// caller its own lease; the handle stays alive at least until all leases
// on it are released. Release is idempotent per lease, so a consumer can
// both defer it and release early without disturbing other holders.
type Lease struct {
	mu       sync.Mutex
	cache    *Cache
	handle   *Handle
	released bool
}

// Handle returns the held handle. It may already be revoked if the
// resource was forcibly invalidated while this lease was outstanding.
func (l *Lease) Handle() *Handle { return l.handle }

// ResourceID returns the id of the leased resource.
func (l *Lease) ResourceID() string { return l.handle.resourceID }

// URI returns the file:// URI of the held handle.
func (l *Lease) URI() string { return l.handle.uri }

// Path returns the scratch file path of the held handle.
func (l *Lease) Path() string { return l.handle.path }

// Release returns this lease's reference to the cache. The first call
// decrements the count; later calls are no-ops. A lease orphaned by a
// forced invalidation releases into a void even when a later acquire has
// re-materialized the same resource.
func (l *Lease) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return
	}
	l.released = true
	l.cache.releaseHandle(l.handle)
}
