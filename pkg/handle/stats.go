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

// Stats is a point-in-time snapshot of cache activity. Counters are
// cumulative since the cache was created.
type Stats struct {
	Entries          int   `json:"entries"`
	Capacity         int   `json:"capacity"`
	Hits             int64 `json:"hits"`
	Misses           int64 `json:"misses"`
	Materializations int64 `json:"materializations"`
	Retries          int64 `json:"retries"`
	Evictions        int64 `json:"evictions"`
	Invalidations    int64 `json:"invalidations"`
	Releases         int64 `json:"releases"`
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	entries := len(c.entries)
	c.mu.Unlock()

	return Stats{
		Entries:          entries,
		Capacity:         c.cfg.Capacity,
		Hits:             c.hits.Load(),
		Misses:           c.misses.Load(),
		Materializations: c.materializations.Load(),
		Retries:          c.mat.retries.Load(),
		Evictions:        c.evictions.Load(),
		Invalidations:    c.invalidations.Load(),
		Releases:         c.releases.Load(),
	}
}
