/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package plugin

import (
	"context"
	"sync"
)

// SizeStore persists the last panel size between previews.
type SizeStore interface {
	LastViewportSize(ctx context.Context) (w, h int, ok bool, err error)
	SaveViewportSize(ctx context.Context, w, h int) error
}

// MemorySizeStore keeps the size for the lifetime of the process.
type MemorySizeStore struct {
	mu   sync.Mutex
	w, h int
	ok   bool
}

func (m *MemorySizeStore) LastViewportSize(context.Context) (int, int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.w, m.h, m.ok, nil
}

func (m *MemorySizeStore) SaveViewportSize(_ context.Context, w, h int) error {
	m.mu.Lock()
	m.w, m.h, m.ok = w, h, true
	m.mu.Unlock()
	return nil
}
