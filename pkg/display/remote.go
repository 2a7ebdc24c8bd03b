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

package display

import (
	"github.com/ZaparooProject/cellboard/pkg/api/notifications"
	"github.com/ZaparooProject/cellboard/pkg/models"
	"github.com/ZaparooProject/cellboard/pkg/service/fanout"
)

// RemoteWidget mirrors the updates of one widget to API clients as
// notifications. Which updates it accepts depends on its kind, the same
// way the kiosk widgets do.
type RemoteWidget struct {
	ns      chan<- models.Notification
	kind    WidgetKind
	surface int
}

func NewRemoteWidget(ns chan<- models.Notification, kind WidgetKind, surface int) *RemoteWidget {
	return &RemoteWidget{ns: ns, kind: kind, surface: surface}
}

func (w *RemoteWidget) Kind() WidgetKind {
	return w.kind
}

func (w *RemoteWidget) StateChanged(ev models.StateEvent) error {
	notifications.StateChanged(w.ns, models.StateChangedParams{
		Widget:  string(w.kind),
		Surface: w.surface,
		State:   ev.State,
		Extras:  ev.Extras,
	})
	return nil
}

func (w *RemoteWidget) RotationChanged(angle float64) error {
	notifications.RotationChanged(w.ns, models.RotationChangedParams{
		Widget:  string(w.kind),
		Surface: w.surface,
		Angle:   angle,
	})
	return nil
}

// remoteLiveStats is a live statistics panel.
type remoteLiveStats struct {
	*RemoteWidget
}

func (w remoteLiveStats) LiveStats(partial models.LiveStats) error {
	notifications.LiveStats(w.ns, models.LiveStatsParams{
		Widget:  string(w.kind),
		Surface: w.surface,
		Fields:  partial,
	})
	return nil
}

// remoteBarChart is the bar chart and headline metric panel.
type remoteBarChart struct {
	*RemoteWidget
}

func (w remoteBarChart) GlobalStats(partial models.GlobalStatsEvent) error {
	notifications.GlobalStats(w.ns, models.GlobalStatsParams{
		Widget:           string(w.kind),
		Surface:          w.surface,
		GlobalStatsEvent: partial,
	})
	return nil
}

func (w remoteBarChart) ChartTick(chart models.ChartData, d models.StateBucketDurations) error {
	notifications.ChartTick(w.ns, models.ChartTickParams{
		Widget:    string(w.kind),
		Surface:   w.surface,
		Chart:     chart,
		Durations: d,
	})
	return nil
}

// NewWidget returns the remote widget for kind with exactly the
// capabilities that kind supports.
func NewWidget(ns chan<- models.Notification, kind WidgetKind, surface int) any {
	base := NewRemoteWidget(ns, kind, surface)
	switch kind {
	case WidgetLiveStats:
		return remoteLiveStats{base}
	case WidgetBarChart:
		return remoteBarChart{base}
	case WidgetRing, WidgetOverlay:
		return base
	default:
		return base
	}
}

// RemoteSwitcher reports which widget of a dual surface is visible.
type RemoteSwitcher struct {
	ns      chan<- models.Notification
	slot    Slot
	surface int
}

func (s *RemoteSwitcher) ShowWidget(index int) error {
	name := ""
	if index >= 0 && index < len(s.slot) {
		name = string(s.slot[index])
	}
	notifications.SurfaceVisible(s.ns, models.SurfaceVisibleParams{
		Widget:  name,
		Surface: s.surface,
		Visible: index,
	})
	return nil
}

// RemoteTargets builds a fanout target per surface, each widget
// publishing to ns.
func RemoteTargets(e Monitors, ns chan<- models.Notification) []fanout.Target {
	handles := e.Surfaces()
	targets := make([]fanout.Target, len(handles))
	for i, h := range handles {
		slot := e.Slot(h.Index)
		t := fanout.Target{Handle: h}
		for _, kind := range slot {
			t.Widgets = append(t.Widgets, NewWidget(ns, kind, h.Index))
		}
		if h.Role == models.RoleDualAlternating {
			t.Switcher = &RemoteSwitcher{ns: ns, slot: slot, surface: h.Index}
		}
		targets[i] = t
	}
	return targets
}

// RemoteOverlay is the full-width ring behind all surfaces.
func RemoteOverlay(ns chan<- models.Notification) any {
	return NewWidget(ns, WidgetOverlay, -1)
}
