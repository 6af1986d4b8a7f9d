/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package ui hosts the preview panel in a desktop window. The window itself is
// only built with the "fyne" tag; the status model here is shared by all builds.
package ui

import (
	"strings"

	"cadpreview/internal/config"
	"cadpreview/internal/plugin"
	"cadpreview/internal/storage"
	"cadpreview/internal/viewport"
)

// RunOptions carry what cmd/cadpreview resolved before opening a window.
type RunOptions struct {
	Path   string
	Config config.AppConfig
	Token  string
	// Cache persists the last panel size; nil keeps it in memory.
	Cache *storage.Cache
}

// Status is the status bar model fed from engine events.
type Status struct {
	Scale   string
	Real    string
	Offset  string
	Message string
}

// Apply folds e into the model and reports whether anything visible changed.
func (s *Status) Apply(e viewport.Event) bool {
	switch e.Kind {
	case viewport.EventStatus:
		s.Scale = e.ScaleRatio()
	case viewport.EventRealPoint:
		s.Real = e.PointString()
	case viewport.EventOffsetPoint:
		s.Offset = e.PointString()
	case viewport.EventLoaded:
		if e.Err != nil {
			s.Message = "Failed: " + e.Err.Error()
		} else {
			s.Message = "Loaded " + plugin.DisplayName(e.Path)
		}
	default:
		return false
	}
	return true
}

func (s Status) String() string {
	var parts []string
	if s.Message != "" {
		parts = append(parts, s.Message)
	}
	if s.Scale != "" {
		parts = append(parts, "Scale "+s.Scale)
	}
	if s.Real != "" {
		parts = append(parts, "X/Y "+s.Real)
	}
	if s.Offset != "" {
		parts = append(parts, "Offset "+s.Offset)
	}
	if len(parts) == 0 {
		return "Ready"
	}
	return strings.Join(parts, "  |  ")
}
