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

package loop

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Debouncer runs the most recently scheduled function after a fixed
// delay. Scheduling again before the delay elapses replaces the pending
// function. All methods must be called on the loop.
type Debouncer struct {
	loop  *Loop
	timer clockwork.Timer
	delay time.Duration
	gen   uint64
	armed bool
}

func (l *Loop) NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{loop: l, delay: delay}
}

func (d *Debouncer) Trigger(fn func()) {
	d.stopTimer()
	d.gen++
	gen := d.gen
	d.armed = true
	d.timer = d.loop.AfterFunc(d.delay, func() {
		// a stopped timer can still have a post in flight
		if gen != d.gen {
			return
		}
		d.armed = false
		fn()
	})
}

// Cancel discards any pending function.
func (d *Debouncer) Cancel() {
	d.stopTimer()
	d.gen++
	d.armed = false
}

func (d *Debouncer) Pending() bool {
	return d.armed
}

func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

func (d *Debouncer) stopTimer() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Repeater runs fn on the loop every interval while started. All methods
// must be called on the loop.
type Repeater struct {
	loop     *Loop
	timer    clockwork.Timer
	fn       func()
	interval time.Duration
	gen      uint64
	running  bool
}

func (l *Loop) NewRepeater(interval time.Duration, fn func()) *Repeater {
	return &Repeater{loop: l, interval: interval, fn: fn}
}

// Start begins the cycle with the first run one interval from now. It
// does nothing if already running.
func (r *Repeater) Start() {
	if r.running {
		return
	}
	r.running = true
	r.schedule()
}

func (r *Repeater) Stop() {
	if !r.running {
		return
	}
	r.running = false
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Repeater) Running() bool {
	return r.running
}

func (r *Repeater) schedule() {
	gen := r.gen
	r.timer = r.loop.AfterFunc(r.interval, func() {
		if !r.running || gen != r.gen {
			return
		}
		r.schedule()
		r.fn()
	})
}
