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

package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ZaparooProject/cellboard/pkg/models"
)

type Display struct {
	// Layouts overrides the widget table per monitor count. Keys are the
	// count, values the slots with alternating widgets joined by "|".
	Layouts             map[string][]string `toml:"layouts,omitempty" validate:"dive,keys,numeric,endkeys,min=1"`
	InitialState        string              `toml:"initial_state" validate:"omitempty,state"`
	ScreenIndices       []int               `toml:"screen_indices" validate:"min=1,unique,dive,gte=0"`
	RotationThreshold   float64             `toml:"rotation_threshold" validate:"gte=0"`
	StateDelayMS        int                 `toml:"state_delay_ms" validate:"gte=0"`
	AlternationMS       int                 `toml:"alternation_ms" validate:"gt=0"`
	TickMS              int                 `toml:"tick_ms" validate:"gt=0"`
	InternalTimeCounter bool                `toml:"internal_time_counter"`
}

func (c *Instance) ScreenIndices() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]int(nil), c.vals.Display.ScreenIndices...)
}

func (c *Instance) SetScreenIndices(indices []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Display.ScreenIndices = append([]int(nil), indices...)
}

func (c *Instance) RotationThreshold() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Display.RotationThreshold
}

func (c *Instance) StateDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.Display.StateDelayMS) * time.Millisecond
}

func (c *Instance) AlternationInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.Display.AlternationMS) * time.Millisecond
}

func (c *Instance) TickInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.Display.TickMS) * time.Millisecond
}

func (c *Instance) InternalTimeCounter() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Display.InternalTimeCounter
}

func (c *Instance) InitialState() models.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, err := models.ParseState(c.vals.Display.InitialState)
	if err != nil {
		return models.StateNormal
	}
	return s
}

// Layouts returns the layout overrides keyed by monitor count, or nil
// when the built-in table applies.
func (c *Instance) Layouts() (map[int][]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.vals.Display.Layouts) == 0 {
		return nil, nil
	}

	layouts := make(map[int][]string, len(c.vals.Display.Layouts))
	for k, v := range c.vals.Display.Layouts {
		n, err := strconv.Atoi(k)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid monitor count %q", k)
		}
		layouts[n] = append([]string(nil), v...)
	}
	return layouts, nil
}
