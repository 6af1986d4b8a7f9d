/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package drawing

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrUnsupported is returned when no backend is registered for a path's suffix.
var ErrUnsupported = errors.New("unsupported drawing format")

// Constructor builds a fresh, unloaded handle.
type Constructor func() Handle

// Registry maps lower-case suffixes (".dxf", ".png") to backends.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

func NewRegistry() *Registry { return &Registry{ctors: map[string]Constructor{}} }

// Register binds ctor to each suffix. A later registration replaces an earlier one.
func (r *Registry) Register(ctor Constructor, exts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		r.ctors[e] = ctor
	}
}

// Extensions lists registered suffixes in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ctors))
	for e := range r.ctors {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Supports reports whether a backend exists for p.
func (r *Registry) Supports(p string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ctors[Ext(p)]
	return ok
}

func (r *Registry) CreateByExtension(p string) (Handle, error) {
	ext := Ext(p)
	r.mu.RLock()
	ctor, ok := r.ctors[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	h := ctor()
	if h == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	return h, nil
}

// Ext returns the lower-case suffix of a file path or URL path.
func Ext(p string) string {
	if IsWebPath(p) {
		if u, err := url.Parse(p); err == nil {
			return strings.ToLower(path.Ext(u.Path))
		}
	}
	return strings.ToLower(filepath.Ext(p))
}

// IsWebPath reports whether p names a remote resource.
func IsWebPath(p string) bool {
	lp := strings.ToLower(strings.TrimSpace(p))
	for _, scheme := range []string{"http://", "https://", "ftp://"} {
		if strings.HasPrefix(lp, scheme) {
			return true
		}
	}
	return false
}
