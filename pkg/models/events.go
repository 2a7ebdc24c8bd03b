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

package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Kind identifies the variant of an Event.
type Kind int

const (
	KindState Kind = iota
	KindRotation
	KindLiveStats
	KindGlobalStats
)

const (
	WireTypeState       = "state"
	WireTypeRotation    = "rotation"
	WireTypeLiveStats   = "liveStats"
	WireTypeGlobalStats = "globalStats"
)

func (k Kind) String() string {
	switch k {
	case KindState:
		return WireTypeState
	case KindRotation:
		return WireTypeRotation
	case KindLiveStats:
		return WireTypeLiveStats
	case KindGlobalStats:
		return WireTypeGlobalStats
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a wire "type" value onto a Kind. The match is case
// sensitive.
func ParseKind(wire string) (Kind, bool) {
	switch wire {
	case WireTypeState:
		return KindState, true
	case WireTypeRotation:
		return KindRotation, true
	case WireTypeLiveStats:
		return KindLiveStats, true
	case WireTypeGlobalStats:
		return KindGlobalStats, true
	default:
		return 0, false
	}
}

// Event is one decoded inbound message. The set of implementations is
// closed to this package.
type Event interface {
	Kind() Kind
	event()
}

// StateEvent reports the cell state. Extras holds every other key that
// was present on the wire (custom text overrides and the like).
type StateEvent struct {
	Extras map[string]json.RawMessage
	State  State
}

func (StateEvent) Kind() Kind { return KindState }
func (StateEvent) event()     {}

// Bare reports whether the event carries nothing beyond the state
// itself.
func (e StateEvent) Bare() bool {
	return len(e.Extras) == 0
}

// Extra decodes a single extra field into dst. It reports false if the
// key is absent or does not decode.
func (e StateEvent) Extra(key string, dst any) bool {
	raw, ok := e.Extras[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// RotationEvent carries the shelf angle in degrees.
type RotationEvent struct {
	Angle float64
}

func (RotationEvent) Kind() Kind { return KindRotation }
func (RotationEvent) event()     {}

const (
	LiveCurrentSpeed  = "currentSpeed"
	LiveCurrentBox    = "currentBox"
	LiveRemainingTime = "remainingTime"
	LiveCurrentPallet = "currentPallet"
	LiveTotalBoxes    = "totalBoxes"
	LiveTotalPallets  = "totalPallets"
)

// LiveStatsFields lists the recognised live statistics keys.
var LiveStatsFields = []string{
	LiveCurrentSpeed,
	LiveCurrentBox,
	LiveRemainingTime,
	LiveCurrentPallet,
	LiveTotalBoxes,
	LiveTotalPallets,
}

// LiveStats is a partial set of live counters keyed by field name.
type LiveStats map[string]int

// Merge copies every present field of other into s.
func (s LiveStats) Merge(other LiveStats) {
	maps.Copy(s, other)
}

func (s LiveStats) Clone() LiveStats {
	return maps.Clone(s)
}

type LiveStatsEvent struct {
	Fields LiveStats
}

func (LiveStatsEvent) Kind() Kind { return KindLiveStats }
func (LiveStatsEvent) event()     {}

// GlobalStatsEvent carries chart data and a headline metric. Nil fields
// were absent on the wire.
type GlobalStatsEvent struct {
	Chart      *ChartData `json:"chartData,omitempty"`
	StatMetric *string    `json:"statMetric,omitempty"`
	StatValue  *string    `json:"statValue,omitempty"`
	StatUnits  *string    `json:"statUnits,omitempty"`
}

func (GlobalStatsEvent) Kind() Kind { return KindGlobalStats }
func (GlobalStatsEvent) event()     {}

// Merge overwrites the fields of g that are present in other.
func (g *GlobalStatsEvent) Merge(other GlobalStatsEvent) {
	if other.Chart != nil {
		var c ChartData
		if g.Chart != nil {
			c = g.Chart.Clone()
		}
		c.Merge(*other.Chart)
		g.Chart = &c
	}
	if other.StatMetric != nil {
		g.StatMetric = other.StatMetric
	}
	if other.StatValue != nil {
		g.StatValue = other.StatValue
	}
	if other.StatUnits != nil {
		g.StatUnits = other.StatUnits
	}
}

// ChartUnits selects how bar values are formatted.
type ChartUnits string

const (
	UnitsMinutes ChartUnits = "min"
	UnitsSeconds ChartUnits = "sec"
	UnitsRaw     ChartUnits = "raw"
)

func (u ChartUnits) Valid() bool {
	switch u {
	case UnitsMinutes, UnitsSeconds, UnitsRaw:
		return true
	default:
		return false
	}
}

type Bar struct {
	Label   string  `json:"label"`
	Display string  `json:"display,omitempty"`
	Color   string  `json:"color,omitempty"`
	Value   float64 `json:"value"`
}

// ChartData is an ordered list of bars. Position determines colour. In a
// partial update empty Units and nil Bars were absent on the wire.
type ChartData struct {
	Units ChartUnits `json:"units"`
	Bars  []Bar      `json:"bars"`
}

func (c ChartData) Clone() ChartData {
	return ChartData{Units: c.Units, Bars: slices.Clone(c.Bars)}
}

// Merge overwrites the units and bars of c that are present in other. An
// empty but non-nil bar list clears the bars.
func (c *ChartData) Merge(other ChartData) {
	if other.Units != "" {
		c.Units = other.Units
	}
	if other.Bars != nil {
		c.Bars = slices.Clone(other.Bars)
	}
}

// Priority orders messages within one drain of the stream queue.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

func (p Priority) String() string {
	if p == PriorityHigh {
		return "high"
	}
	return "normal"
}

// QueuedMessage is an Event waiting in the stream queue.
type QueuedMessage struct {
	Event    Event
	Priority Priority
	Sequence int
}
