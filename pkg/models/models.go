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

// Package models holds the types shared between the transport, decode,
// reconcile and presentation layers.
package models

import (
	"encoding/json"
)

// SurfaceRole distinguishes a plain surface from one that alternates
// between two widgets.
type SurfaceRole int

const (
	RoleSingle SurfaceRole = iota
	RoleDualAlternating
)

func (r SurfaceRole) String() string {
	if r == RoleDualAlternating {
		return "dual"
	}
	return "single"
}

// SurfaceHandle identifies one display surface.
type SurfaceHandle struct {
	Index int         `json:"index"`
	Total int         `json:"total"`
	Role  SurfaceRole `json:"role"`
}

const (
	NotificationStateChanged    = "state.changed"
	NotificationRotationChanged = "rotation.changed"
	NotificationLiveStats       = "stats.live"
	NotificationGlobalStats     = "stats.global"
	NotificationChartTick       = "chart.tick"
	NotificationSurfaceVisible  = "surface.visible"
	NotificationLinkStatus      = "link.status"
)

// AllNotifications lists every notification method the service emits.
var AllNotifications = []string{
	NotificationStateChanged,
	NotificationRotationChanged,
	NotificationLiveStats,
	NotificationGlobalStats,
	NotificationChartTick,
	NotificationSurfaceVisible,
	NotificationLinkStatus,
}

type Notification struct {
	Method string
	Params json.RawMessage
}

// StateChangedParams is sent when a widget receives a state update.
type StateChangedParams struct {
	Extras  map[string]json.RawMessage `json:"extras,omitempty"`
	Widget  string                     `json:"widget"`
	State   State                      `json:"state"`
	Surface int                        `json:"surface"`
}

type RotationChangedParams struct {
	Widget  string  `json:"widget"`
	Surface int     `json:"surface"`
	Angle   float64 `json:"angle"`
}

type LiveStatsParams struct {
	Fields  LiveStats `json:"fields"`
	Widget  string    `json:"widget"`
	Surface int       `json:"surface"`
}

type GlobalStatsParams struct {
	GlobalStatsEvent
	Widget  string `json:"widget"`
	Surface int    `json:"surface"`
}

type ChartTickParams struct {
	Chart     ChartData            `json:"chart"`
	Widget    string               `json:"widget"`
	Durations StateBucketDurations `json:"durations"`
	Surface   int                  `json:"surface"`
}

type SurfaceVisibleParams struct {
	Widget  string `json:"widget"`
	Surface int    `json:"surface"`
	Visible int    `json:"visible"`
}

type LinkStatusParams struct {
	Link  string `json:"link"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// Snapshot is the reconciled view of the cell at one instant.
type Snapshot struct {
	Angle       *float64             `json:"angle,omitempty"`
	LiveStats   LiveStats            `json:"liveStats"`
	GlobalStats GlobalStatsEvent     `json:"globalStats"`
	Durations   StateBucketDurations `json:"durations"`
	State       State                `json:"state"`
}
