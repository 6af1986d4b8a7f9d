/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package viewport

import (
	"fmt"
	"sync"

	"cadpreview/internal/geom"
)

type EventKind int

const (
	EventStatus EventKind = iota + 1
	EventCursor
	EventRealPoint
	EventOffsetPoint
	EventLoaded
)

func (k EventKind) String() string {
	switch k {
	case EventStatus:
		return "status"
	case EventCursor:
		return "cursor"
	case EventRealPoint:
		return "real_point"
	case EventOffsetPoint:
		return "offset_point"
	case EventLoaded:
		return "loaded"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is a notification for the status UI. Only the fields of its Kind are set.
type Event struct {
	Kind EventKind
	// Scale is the formatted scale percentage without the "%" sign.
	Scale  string
	Cursor Cursor
	// Point is the drawing-space point; it is geom.EmptyPoint when unmappable.
	Point geom.Pt
	Path  string
	Err   error
}

// ScaleRatio is the status text, e.g. "125.00%".
func (e Event) ScaleRatio() string {
	if e.Kind != EventStatus || e.Scale == "" {
		return ""
	}
	return e.Scale + "%"
}

// PointString formats real and offset points as "x, y" with two decimals.
func (e Event) PointString() string {
	if (e.Kind != EventRealPoint && e.Kind != EventOffsetPoint) || e.Point.IsEmpty() {
		return ""
	}
	return fmt.Sprintf("%.2f, %.2f", e.Point.X, e.Point.Y)
}

// Listener receives events synchronously on the emitting goroutine.
type Listener func(Event)

// Bus fans events out to listeners. The zero value is not usable; use NewBus.
type Bus struct {
	mu   sync.Mutex
	subs map[EventKind][]Listener
	all  []Listener
}

func NewBus() *Bus { return &Bus{subs: map[EventKind][]Listener{}} }

// On subscribes l to one kind of event.
func (b *Bus) On(kind EventKind, l Listener) {
	b.mu.Lock()
	b.subs[kind] = append(b.subs[kind], l)
	b.mu.Unlock()
}

// OnAll subscribes l to every event.
func (b *Bus) OnAll(l Listener) {
	b.mu.Lock()
	b.all = append(b.all, l)
	b.mu.Unlock()
}

// Emit delivers e. Listeners run outside the lock and may subscribe or emit.
func (b *Bus) Emit(e Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	ls := make([]Listener, 0, len(b.subs[e.Kind])+len(b.all))
	ls = append(ls, b.subs[e.Kind]...)
	ls = append(ls, b.all...)
	b.mu.Unlock()
	for _, l := range ls {
		l(e)
	}
}
