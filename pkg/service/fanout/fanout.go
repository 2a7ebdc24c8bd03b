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

// Package fanout delivers reconciled updates to every display surface.
// The ring surface sees state changes immediately, the other surfaces
// after a short delay so their animations line up with the ring.
package fanout

import (
	"fmt"
	"runtime/debug"
	"slices"
	"time"

	"github.com/ZaparooProject/cellboard/pkg/models"
	"github.com/ZaparooProject/cellboard/pkg/service/aggregator"
	"github.com/ZaparooProject/cellboard/pkg/service/loop"
	"github.com/rs/zerolog/log"
)

const (
	DefaultStateDelay          = 1000 * time.Millisecond
	DefaultAlternationInterval = 10000 * time.Millisecond
)

// Stateful widgets show the cell state.
type Stateful interface {
	StateChanged(ev models.StateEvent) error
}

// Rotatable widgets follow the shelf angle.
type Rotatable interface {
	RotationChanged(angle float64) error
}

type LiveStatsReceiver interface {
	LiveStats(partial models.LiveStats) error
}

type GlobalStatsReceiver interface {
	GlobalStats(partial models.GlobalStatsEvent) error
}

// ChartReceiver widgets take the internally counted state times.
type ChartReceiver interface {
	ChartTick(chart models.ChartData, durations models.StateBucketDurations) error
}

// Switcher changes which widget of a dual surface is shown.
type Switcher interface {
	ShowWidget(index int) error
}

// Target is one surface and the widgets on it. A widget may implement
// any subset of the capability interfaces. Dual surfaces have two
// widgets and should set Switcher.
type Target struct {
	Switcher Switcher
	Widgets  []any
	Handle   models.SurfaceHandle
}

// Observer is told about widgets that failed to take an update.
type Observer interface {
	WidgetFailed(surface int)
}

type Option func(*Fanout)

func WithStateDelay(d time.Duration) Option {
	return func(f *Fanout) {
		f.stateDelay = d
	}
}

func WithAlternationInterval(d time.Duration) Option {
	return func(f *Fanout) {
		f.altInterval = d
	}
}

// WithOverlays adds widgets outside any surface that get state changes
// at the same time as the ring surface.
func WithOverlays(widgets ...any) Option {
	return func(f *Fanout) {
		f.overlays = append(f.overlays, widgets...)
	}
}

func WithObserver(o Observer) Option {
	return func(f *Fanout) {
		f.observer = o
	}
}

// overlaySurface is the surface index reported for overlay failures.
const overlaySurface = -1

type alternator struct {
	target   *Target
	repeater *loop.Repeater
	visible  int
	paused   bool
}

// Fanout must only be used from the loop it was created with.
type Fanout struct {
	loop        *loop.Loop
	delayed     *loop.Debouncer
	observer    Observer
	targets     []*Target
	overlays    []any
	alternators []*alternator
	ringIndex   int
	stateDelay  time.Duration
	altInterval time.Duration
	state       models.State
	started     bool
}

func New(l *loop.Loop, targets []Target, ringIndex int, opts ...Option) *Fanout {
	f := &Fanout{
		loop:        l,
		ringIndex:   ringIndex,
		stateDelay:  DefaultStateDelay,
		altInterval: DefaultAlternationInterval,
		state:       models.StateNormal,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.delayed = l.NewDebouncer(f.stateDelay)

	targets = slices.Clone(targets)
	for i := range targets {
		t := &targets[i]
		f.targets = append(f.targets, t)
		if len(t.Widgets) > 1 {
			a := &alternator{target: t}
			a.repeater = l.NewRepeater(f.altInterval, func() { f.advance(a) })
			f.alternators = append(f.alternators, a)
		}
	}
	return f
}

// Start shows the first widget of every dual surface and begins
// alternating. Must be called on the loop.
func (f *Fanout) Start() {
	if f.started {
		return
	}
	f.started = true
	for _, a := range f.alternators {
		a.paused = !f.state.Running()
		f.show(a, 0)
		if !a.paused {
			a.repeater.Start()
		}
	}
}

// Stop cancels the pending delayed update and all alternation.
func (f *Fanout) Stop() {
	f.delayed.Cancel()
	for _, a := range f.alternators {
		a.repeater.Stop()
	}
	f.started = false
}

// RingIndex returns the index of the surface that gets state changes
// immediately.
func (f *Fanout) RingIndex() int {
	return f.ringIndex
}

// Visible returns the widget index currently shown on a dual surface.
func (f *Fanout) Visible(surface int) (int, bool) {
	for _, a := range f.alternators {
		if a.target.Handle.Index == surface {
			return a.visible, true
		}
	}
	return 0, false
}

// DelayedPending reports whether a delayed state update is waiting.
func (f *Fanout) DelayedPending() bool {
	return f.delayed.Pending()
}

// BroadcastState updates the ring surface and overlays now and every
// other surface after the state delay. A newer state replaces a pending
// delayed one.
func (f *Fanout) BroadcastState(ev models.StateEvent) {
	for _, w := range f.overlays {
		f.deliverState(overlaySurface, w, ev)
	}
	for _, t := range f.targets {
		if t.Handle.Index == f.ringIndex {
			f.stateToTarget(t, ev)
		}
	}

	f.delayed.Trigger(func() {
		for _, t := range f.targets {
			if t.Handle.Index != f.ringIndex {
				f.stateToTarget(t, ev)
			}
		}
		f.applyAlternation(ev.State)
	})
}

func (f *Fanout) stateToTarget(t *Target, ev models.StateEvent) {
	for _, w := range t.Widgets {
		f.deliverState(t.Handle.Index, w, ev)
	}
}

func (f *Fanout) deliverState(surface int, w any, ev models.StateEvent) {
	if s, ok := w.(Stateful); ok {
		f.call(surface, "state", func() error { return s.StateChanged(ev) })
	}
}

// applyAlternation pauses dual surfaces on widget 0 outside normal
// running states and restarts them from widget 0 when running resumes.
func (f *Fanout) applyAlternation(state models.State) {
	f.state = state
	if !f.started {
		return
	}
	running := state.Running()
	for _, a := range f.alternators {
		switch {
		case !running:
			a.repeater.Stop()
			if !a.paused || a.visible != 0 {
				f.show(a, 0)
			}
			a.paused = true
		case a.paused:
			a.paused = false
			f.show(a, 0)
			a.repeater.Start()
		}
	}
}

func (f *Fanout) advance(a *alternator) {
	f.show(a, (a.visible+1)%len(a.target.Widgets))
}

func (f *Fanout) show(a *alternator, index int) {
	a.visible = index
	if a.target.Switcher == nil {
		return
	}
	f.call(a.target.Handle.Index, "switch", func() error {
		return a.target.Switcher.ShowWidget(index)
	})
}

// BroadcastRotation sends the angle to every widget on every surface,
// including hidden widgets of dual surfaces.
func (f *Fanout) BroadcastRotation(angle float64) {
	f.each(func(surface int, w any) {
		if r, ok := w.(Rotatable); ok {
			f.call(surface, "rotation", func() error { return r.RotationChanged(angle) })
		}
	})
}

func (f *Fanout) BroadcastLiveStats(partial models.LiveStats) {
	f.each(func(surface int, w any) {
		if r, ok := w.(LiveStatsReceiver); ok {
			f.call(surface, "live stats", func() error { return r.LiveStats(partial) })
		}
	})
}

// BroadcastGlobalStats sends global stats with display strings and
// colours filled in on the chart.
func (f *Fanout) BroadcastGlobalStats(partial models.GlobalStatsEvent) {
	if partial.Chart != nil {
		chart := aggregator.Decorate(*partial.Chart)
		partial.Chart = &chart
	}
	f.each(func(surface int, w any) {
		if r, ok := w.(GlobalStatsReceiver); ok {
			f.call(surface, "global stats", func() error { return r.GlobalStats(partial) })
		}
	})
}

func (f *Fanout) BroadcastChartTick(chart models.ChartData, durations models.StateBucketDurations) {
	f.each(func(surface int, w any) {
		if r, ok := w.(ChartReceiver); ok {
			f.call(surface, "chart tick", func() error { return r.ChartTick(chart, durations) })
		}
	})
}

// StateChanged and the methods below let the fanout act as the
// reconciler's sink.
func (f *Fanout) StateChanged(ev models.StateEvent) { f.BroadcastState(ev) }

func (f *Fanout) RotationChanged(angle float64) { f.BroadcastRotation(angle) }

func (f *Fanout) LiveStatsChanged(partial models.LiveStats) { f.BroadcastLiveStats(partial) }

func (f *Fanout) GlobalStatsChanged(partial models.GlobalStatsEvent) {
	f.BroadcastGlobalStats(partial)
}

func (f *Fanout) each(fn func(surface int, w any)) {
	for _, w := range f.overlays {
		fn(overlaySurface, w)
	}
	for _, t := range f.targets {
		for _, w := range t.Widgets {
			fn(t.Handle.Index, w)
		}
	}
}

// call isolates one widget so a failing surface cannot stop delivery to
// the rest.
func (f *Fanout) call(surface int, what string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Int("surface", surface).
				Str("stack", string(debug.Stack())).
				Msgf("fanout: widget panicked on %s: %v", what, r)
			f.failed(surface)
		}
	}()
	if err := fn(); err != nil {
		log.Warn().Err(fmt.Errorf("surface %d: %w", surface, err)).
			Msgf("fanout: widget rejected %s update", what)
		f.failed(surface)
	}
}

func (f *Fanout) failed(surface int) {
	if f.observer != nil {
		f.observer.WidgetFailed(surface)
	}
}
