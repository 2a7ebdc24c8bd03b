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
	"errors"
	"fmt"
)

// ErrUnknownState is returned when a wire value does not name a State.
var ErrUnknownState = errors.New("unknown state")

// State is the robot cell's operating state.
type State int

const (
	StateNormal State = iota
	StateWarning
	StateError
	StateReducedSpeed
	StateStopped
	StateIdle
	StateTaskFinished
)

var stateNames = [...]string{
	StateNormal:       "normal",
	StateWarning:      "warning",
	StateError:        "error",
	StateReducedSpeed: "reduced_speed",
	StateStopped:      "stopped",
	StateIdle:         "idle",
	StateTaskFinished: "task_finished",
}

// AllStates lists every State in declaration order.
var AllStates = []State{
	StateNormal,
	StateWarning,
	StateError,
	StateReducedSpeed,
	StateStopped,
	StateIdle,
	StateTaskFinished,
}

func (s State) Valid() bool {
	return s >= StateNormal && s <= StateTaskFinished
}

func (s State) String() string {
	if !s.Valid() {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// ParseState converts a wire name into a State. Matching is exact.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownState, name)
}

func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownState, int(s))
	}
	return []byte(stateNames[s]), nil
}

func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Running reports whether the cell is in a state where dual surfaces
// are allowed to alternate.
func (s State) Running() bool {
	return s == StateNormal || s == StateIdle
}

// Bucket is the coarse classification used for time accounting.
type Bucket int

const (
	BucketNone Bucket = iota
	BucketNormal
	BucketWarning
	BucketError
)

func (b Bucket) String() string {
	switch b {
	case BucketNormal:
		return "normal"
	case BucketWarning:
		return "warning"
	case BucketError:
		return "error"
	case BucketNone:
		return "none"
	default:
		return fmt.Sprintf("Bucket(%d)", int(b))
	}
}

// Bucket maps a State onto its time accounting bucket. Idle and
// TaskFinished do not accrue time.
func (s State) Bucket() Bucket {
	switch s {
	case StateNormal:
		return BucketNormal
	case StateWarning, StateReducedSpeed:
		return BucketWarning
	case StateError, StateStopped:
		return BucketError
	case StateIdle, StateTaskFinished:
		return BucketNone
	default:
		return BucketNone
	}
}

// StateBucketDurations holds the accumulated seconds per bucket.
type StateBucketDurations struct {
	NormalSeconds  int `json:"normalSeconds"`
	WarningSeconds int `json:"warningSeconds"`
	ErrorSeconds   int `json:"errorSeconds"`
}

func (d StateBucketDurations) Total() int {
	return d.NormalSeconds + d.WarningSeconds + d.ErrorSeconds
}
