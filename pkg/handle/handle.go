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

import (
	"os"
	"path/filepath"
)

// Handle is an ephemeral, revocable local reference to a materialized
// resource: a scratch file holding the decoded payload, addressed by a
// file:// URI. Handles are valid only within the current process; the
// payload always remains derivable from the durable store.
type Handle struct {
	resourceID string
	path       string
	uri        string
	size       int64
}

// ResourceID returns the id of the durable resource the handle was
// materialized from.
func (h *Handle) ResourceID() string { return h.resourceID }

// URI returns the file:// URI of the scratch file.
func (h *Handle) URI() string { return h.uri }

// Path returns the filesystem path of the scratch file.
func (h *Handle) Path() string { return h.path }

// Size returns the payload size in bytes.
func (h *Handle) Size() int64 { return h.size }

// revoke deletes the scratch file backing the handle. Revoking an
// already-removed file is not an error.
func (h *Handle) revoke() error {
	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func fileURI(path string) string {
	return "file://" + filepath.ToSlash(path)
}
