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

// Package decoder turns raw transport frames into typed events. Stream
// frames are JSON objects, serial frames are prefix:value lines.
package decoder

import (
	"encoding/json"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/ZaparooProject/cellboard/pkg/models"
	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	keyType     = "type"
	keyState    = "state"
	keyPriority = "priority"
	keyAngle    = "angle"
	keyRotation = "rotation"
	keyChart    = "chart"
	keyChartAlt = "chartData"

	priorityHigh = "high"
)

// Decoded is a stream event together with its queue priority.
type Decoded struct {
	Event    models.Event
	Priority models.Priority
}

// DecodeFrame decodes one delimited stream frame. The frame must be a
// single UTF-8 JSON object with a "type" field naming the variant.
func DecodeFrame(frame []byte) (Decoded, error) {
	if !utf8.Valid(frame) {
		return Decoded{}, ErrInvalidUTF8
	}

	var fields map[string]json.RawMessage
	if err := jsonAPI.Unmarshal(frame, &fields); err != nil {
		return Decoded{}, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	if fields == nil {
		return Decoded{}, ErrInvalidJSON
	}

	rawType, ok := fields[keyType]
	if !ok {
		return Decoded{}, ErrMissingType
	}
	var wireType string
	if err := jsonAPI.Unmarshal(rawType, &wireType); err != nil {
		return Decoded{}, fmt.Errorf("%w: type: %w", ErrTypeMismatch, err)
	}
	kind, ok := models.ParseKind(wireType)
	if !ok {
		return Decoded{}, fmt.Errorf("%w: %q", ErrUnknownType, wireType)
	}

	var ev models.Event
	var err error
	switch kind {
	case models.KindState:
		ev, err = decodeState(fields)
	case models.KindRotation:
		ev, err = decodeRotation(fields)
	case models.KindLiveStats:
		ev, err = decodeLiveStats(fields)
	case models.KindGlobalStats:
		ev, err = decodeGlobalStats(fields)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownType, wireType)
	}
	if err != nil {
		return Decoded{}, err
	}

	return Decoded{Event: ev, Priority: decodePriority(fields)}, nil
}

func decodePriority(fields map[string]json.RawMessage) models.Priority {
	raw, ok := fields[keyPriority]
	if !ok {
		return models.PriorityNormal
	}
	var p string
	if err := jsonAPI.Unmarshal(raw, &p); err != nil || p != priorityHigh {
		return models.PriorityNormal
	}
	return models.PriorityHigh
}

func decodeState(fields map[string]json.RawMessage) (models.Event, error) {
	raw, ok := fields[keyState]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, keyState)
	}
	var name string
	if err := jsonAPI.Unmarshal(raw, &name); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTypeMismatch, keyState, err)
	}
	state, err := models.ParseState(name)
	if err != nil {
		return nil, err
	}

	var extras map[string]json.RawMessage
	for k, v := range fields {
		if k == keyType || k == keyState || k == keyPriority {
			continue
		}
		if extras == nil {
			extras = make(map[string]json.RawMessage)
		}
		extras[k] = v
	}

	return models.StateEvent{State: state, Extras: extras}, nil
}

func decodeRotation(fields map[string]json.RawMessage) (models.Event, error) {
	raw, ok := fields[keyAngle]
	if !ok {
		raw, ok = fields[keyRotation]
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, keyAngle)
	}
	var angle float64
	if err := jsonAPI.Unmarshal(raw, &angle); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTypeMismatch, keyAngle, err)
	}
	return models.RotationEvent{Angle: angle}, nil
}

func decodeLiveStats(fields map[string]json.RawMessage) (models.Event, error) {
	stats := make(models.LiveStats)
	for _, key := range models.LiveStatsFields {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var v int
		if err := jsonAPI.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrTypeMismatch, key, err)
		}
		stats[key] = v
	}
	return models.LiveStatsEvent{Fields: stats}, nil
}

type wireBar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// wireChart fields are pointers so a partial chart can be told apart from
// an empty one.
type wireChart struct {
	Units *string    `json:"units"`
	Bars  *[]wireBar `json:"bars"`
}

func decodeGlobalStats(fields map[string]json.RawMessage) (models.Event, error) {
	var ev models.GlobalStatsEvent

	raw, ok := fields[keyChart]
	if !ok {
		raw, ok = fields[keyChartAlt]
	}
	if ok {
		chart, err := decodeChart(raw)
		if err != nil {
			return nil, err
		}
		ev.Chart = chart
	}

	for key, dst := range map[string]**string{
		"statMetric": &ev.StatMetric,
		"statValue":  &ev.StatValue,
		"statUnits":  &ev.StatUnits,
	} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := jsonAPI.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrTypeMismatch, key, err)
		}
		*dst = &s
	}

	return ev, nil
}

// decodeChart decodes a possibly partial chart. Units are only checked
// when present.
func decodeChart(raw json.RawMessage) (*models.ChartData, error) {
	var wc wireChart
	if err := jsonAPI.Unmarshal(raw, &wc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTypeMismatch, keyChart, err)
	}

	var chart models.ChartData
	if wc.Units != nil {
		chart.Units = models.ChartUnits(*wc.Units)
		if !chart.Units.Valid() {
			return nil, fmt.Errorf("%w: chart units %q", ErrTypeMismatch, *wc.Units)
		}
	}
	if wc.Bars != nil {
		chart.Bars = make([]models.Bar, 0, len(*wc.Bars))
		for _, b := range *wc.Bars {
			if math.IsNaN(b.Value) || math.IsInf(b.Value, 0) {
				return nil, fmt.Errorf("%w: bar %q value", ErrTypeMismatch, b.Label)
			}
			chart.Bars = append(chart.Bars, models.Bar{Label: b.Label, Value: b.Value})
		}
	}
	return &chart, nil
}
