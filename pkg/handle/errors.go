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

import "errors"

// ErrMaterializationExhausted is returned by Acquire when every
// materialization attempt failed. The wrapped chain carries the last
// underlying store error for diagnostics; match with errors.Is.
var ErrMaterializationExhausted = errors.New("materialization exhausted")

// ErrClosed is returned by Acquire after the cache has been closed.
var ErrClosed = errors.New("handle cache closed")
