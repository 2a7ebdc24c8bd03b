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

package aggregator

import (
	"fmt"
	"math"

	"github.com/ZaparooProject/cellboard/pkg/models"
	"github.com/dustin/go-humanize"
)

// FormatValue renders a bar value for display according to units.
func FormatValue(units models.ChartUnits, value float64) string {
	switch units {
	case models.UnitsMinutes:
		return FormatMinutes(int(math.Round(value)))
	case models.UnitsSeconds:
		return FormatSeconds(int(math.Round(value)))
	case models.UnitsRaw:
		return humanize.CommafWithDigits(value, 2)
	default:
		return fmt.Sprintf("%g %s", value, units)
	}
}

// FormatMinutes renders minutes as "45 min", "2h" or "2h 5 min".
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %d min", h, m)
}

// FormatSeconds renders seconds as "5s", "2m 5s" or "1h 2m 5s".
func FormatSeconds(secs int) string {
	if secs < 0 {
		secs = 0
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
