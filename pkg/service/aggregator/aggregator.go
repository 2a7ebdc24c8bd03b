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

// Package aggregator accumulates how long the cell has spent in each
// state bucket and renders that as bar chart data.
package aggregator

import (
	"github.com/ZaparooProject/cellboard/pkg/models"
)

const (
	LabelNormal  = "Max. Speed"
	LabelWarning = "Reduced Speed"
	LabelError   = "Stopped"

	ColorNormal  = "#00FF00"
	ColorWarning = "#FFFF00"
	ColorError   = "#FF0000"

	StatMetricTotal = "Total Time"
)

// BarColors are assigned to bars by position.
var BarColors = []string{ColorNormal, ColorWarning, ColorError}

// Aggregator is owned by the main loop and is not safe for concurrent
// use.
type Aggregator struct {
	durations models.StateBucketDurations
	current   models.Bucket
}

func New() *Aggregator {
	return &Aggregator{current: models.BucketNormal}
}

// SetCurrentBucket records which bucket subsequent ticks accrue to.
func (a *Aggregator) SetCurrentBucket(b models.Bucket) {
	a.current = b
}

func (a *Aggregator) CurrentBucket() models.Bucket {
	return a.current
}

// Tick adds one second to the current bucket.
func (a *Aggregator) Tick() {
	switch a.current {
	case models.BucketNormal:
		a.durations.NormalSeconds++
	case models.BucketWarning:
		a.durations.WarningSeconds++
	case models.BucketError:
		a.durations.ErrorSeconds++
	case models.BucketNone:
	}
}

func (a *Aggregator) Durations() models.StateBucketDurations {
	return a.durations
}

// ChartData renders the durations as three bars in the order normal,
// warning, error.
func (a *Aggregator) ChartData() models.ChartData {
	values := []struct {
		label string
		secs  int
	}{
		{LabelNormal, a.durations.NormalSeconds},
		{LabelWarning, a.durations.WarningSeconds},
		{LabelError, a.durations.ErrorSeconds},
	}

	chart := models.ChartData{
		Units: models.UnitsSeconds,
		Bars:  make([]models.Bar, len(values)),
	}
	for i, v := range values {
		chart.Bars[i] = models.Bar{
			Label:   v.label,
			Value:   float64(v.secs),
			Display: FormatValue(models.UnitsSeconds, float64(v.secs)),
			Color:   BarColors[i],
		}
	}
	return chart
}

// Summary returns the chart together with the total tracked time as a
// global stats payload.
func (a *Aggregator) Summary() models.GlobalStatsEvent {
	chart := a.ChartData()
	metric := StatMetricTotal
	value := FormatValue(models.UnitsSeconds, float64(a.durations.Total()))
	units := ""
	return models.GlobalStatsEvent{
		Chart:      &chart,
		StatMetric: &metric,
		StatValue:  &value,
		StatUnits:  &units,
	}
}

// Decorate fills in display strings and colours for externally supplied
// chart data, leaving the values untouched.
func Decorate(chart models.ChartData) models.ChartData {
	out := chart.Clone()
	for i := range out.Bars {
		out.Bars[i].Display = FormatValue(out.Units, out.Bars[i].Value)
		if out.Bars[i].Color == "" && i < len(BarColors) {
			out.Bars[i].Color = BarColors[i]
		}
	}
	return out
}
