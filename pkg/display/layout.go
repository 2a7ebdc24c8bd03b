// Cellboard
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Cellboard.
//
// Cellboard is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Cellboard is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Cellboard.  If not, see <http://www.gnu.org/licenses/>.

// Package display describes which widgets appear on which surface for a
// given number of monitors, and provides the widgets that mirror their
// updates to remote kiosk clients.
package display

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ZaparooProject/cellboard/pkg/models"
)

// WidgetKind names a widget implementation.
type WidgetKind string

const (
	WidgetRing      WidgetKind = "ring"
	WidgetLiveStats WidgetKind = "live_stats"
	WidgetBarChart  WidgetKind = "bar_chart_info"
	// WidgetOverlay is the ring drawn across all monitors behind the
	// surfaces. It is never part of a layout slot.
	WidgetOverlay WidgetKind = "ring_overlay"
)

var knownWidgets = []WidgetKind{WidgetRing, WidgetLiveStats, WidgetBarChart}

var (
	ErrUnknownWidget = errors.New("unknown widget")
	ErrInvalidSlot   = errors.New("invalid layout slot")
)

const slotSeparator = "|"

// Slot is the widget list of one surface. Two widgets make the surface
// alternate between them.
type Slot []WidgetKind

// ParseSlot parses "ring" or "bar_chart_info|live_stats".
func ParseSlot(s string) (Slot, error) {
	parts := strings.Split(s, slotSeparator)
	if len(parts) > 2 {
		return nil, fmt.Errorf("%w: %q has more than two widgets", ErrInvalidSlot, s)
	}
	slot := make(Slot, 0, len(parts))
	for _, p := range parts {
		k := WidgetKind(strings.TrimSpace(p))
		if !slices.Contains(knownWidgets, k) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownWidget, p)
		}
		slot = append(slot, k)
	}
	return slot, nil
}

func (s Slot) String() string {
	parts := make([]string, len(s))
	for i, k := range s {
		parts[i] = string(k)
	}
	return strings.Join(parts, slotSeparator)
}

func (s Slot) Role() models.SurfaceRole {
	if len(s) > 1 {
		return models.RoleDualAlternating
	}
	return models.RoleSingle
}

// Layout maps a monitor count to the slot of each surface.
type Layout map[int][]Slot

// DefaultLayout is the layout used when none is configured.
var DefaultLayout = Layout{
	1: {{WidgetRing}},
	2: {{WidgetRing}, {WidgetBarChart, WidgetLiveStats}},
	3: {{WidgetLiveStats}, {WidgetRing}, {WidgetBarChart}},
}

// ParseLayout builds a Layout from string slot lists keyed by monitor
// count. Each entry must list exactly count slots.
func ParseLayout(entries map[int][]string) (Layout, error) {
	l := make(Layout, len(entries))
	for count, slots := range entries {
		if count < 1 || len(slots) != count {
			return nil, fmt.Errorf("%w: layout for %d monitors has %d slots",
				ErrInvalidSlot, count, len(slots))
		}
		parsed := make([]Slot, len(slots))
		for i, s := range slots {
			slot, err := ParseSlot(s)
			if err != nil {
				return nil, fmt.Errorf("layout %d slot %d: %w", count, i, err)
			}
			parsed[i] = slot
		}
		l[count] = parsed
	}
	return l, nil
}

// Slots returns the slots for total monitors. Counts without an entry
// show the ring on every surface.
func (l Layout) Slots(total int) []Slot {
	if slots, ok := l[total]; ok {
		return slots
	}
	out := make([]Slot, total)
	for i := range out {
		out[i] = Slot{WidgetRing}
	}
	return out
}

// RingSurfaceIndex returns the first surface whose only widget is the
// ring, or 0 if there is none.
func (l Layout) RingSurfaceIndex(total int) int {
	for i, s := range l[total] {
		if len(s) == 1 && s[0] == WidgetRing {
			return i
		}
	}
	return 0
}

// Enumerator lists the surfaces to drive.
type Enumerator interface {
	Surfaces() []models.SurfaceHandle
	RingSurfaceIndex(total int) int
}

// Monitors binds a Layout to a monitor count.
type Monitors struct {
	Layout Layout
	Count  int
}

func (m Monitors) Surfaces() []models.SurfaceHandle {
	slots := m.Layout.Slots(m.Count)
	out := make([]models.SurfaceHandle, len(slots))
	for i, s := range slots {
		out[i] = models.SurfaceHandle{Index: i, Total: m.Count, Role: s.Role()}
	}
	return out
}

func (m Monitors) RingSurfaceIndex(total int) int {
	return m.Layout.RingSurfaceIndex(total)
}

func (m Monitors) Slot(index int) Slot {
	slots := m.Layout.Slots(m.Count)
	if index < 0 || index >= len(slots) {
		return nil
	}
	return slots[index]
}
