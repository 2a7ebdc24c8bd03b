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

// Package reconciler holds the authoritative presentation state. It
// decides which inbound events are worth propagating and merges partial
// statistics into a canonical snapshot.
package reconciler

import (
	"math"

	"github.com/ZaparooProject/cellboard/pkg/models"
	"github.com/rs/zerolog/log"
)

const DefaultRotationThreshold = 0.5

// Sink receives the events that survive reconciliation.
type Sink interface {
	StateChanged(ev models.StateEvent)
	RotationChanged(angle float64)
	LiveStatsChanged(partial models.LiveStats)
	GlobalStatsChanged(partial models.GlobalStatsEvent)
}

// BucketSetter receives the time accounting bucket of each propagated
// state.
type BucketSetter interface {
	SetCurrentBucket(b models.Bucket)
}

// Observer is told about suppressed events. Used for metrics.
type Observer interface {
	EventSuppressed(kind models.Kind)
}

type Option func(*Reconciler)

func WithInitialState(s models.State) Option {
	return func(r *Reconciler) {
		r.state = s
	}
}

// WithRotationThreshold sets the deadband in degrees. Negative values
// are treated as zero.
func WithRotationThreshold(deg float64) Option {
	return func(r *Reconciler) {
		r.threshold = math.Max(0, deg)
	}
}

func WithObserver(o Observer) Option {
	return func(r *Reconciler) {
		r.observer = o
	}
}

// Reconciler is owned by the main loop and is not safe for concurrent
// use.
type Reconciler struct {
	sink        Sink
	buckets     BucketSetter
	observer    Observer
	lastAngle   *float64
	liveStats   models.LiveStats
	globalStats models.GlobalStatsEvent
	threshold   float64
	state       models.State
}

func New(sink Sink, buckets BucketSetter, opts ...Option) *Reconciler {
	r := &Reconciler{
		sink:      sink,
		buckets:   buckets,
		state:     models.StateNormal,
		threshold: DefaultRotationThreshold,
		liveStats: make(models.LiveStats),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply reconciles one decoded event.
func (r *Reconciler) Apply(ev models.Event) {
	switch e := ev.(type) {
	case models.StateEvent:
		r.applyState(e)
	case models.RotationEvent:
		r.applyRotation(e)
	case models.LiveStatsEvent:
		r.liveStats.Merge(e.Fields)
		r.sink.LiveStatsChanged(e.Fields)
	case models.GlobalStatsEvent:
		r.globalStats.Merge(e)
		// a partial chart goes out merged with the stored one
		if e.Chart != nil {
			chart := r.globalStats.Chart.Clone()
			e.Chart = &chart
		}
		r.sink.GlobalStatsChanged(e)
	default:
		log.Warn().Msgf("reconciler: unhandled event type %T", ev)
	}
}

func (r *Reconciler) applyState(e models.StateEvent) {
	if e.State == r.state && e.Bare() {
		log.Debug().Msgf("reconciler: suppressing duplicate state %s", e.State)
		r.suppressed(models.KindState)
		return
	}

	if e.State != r.state {
		log.Info().Msgf("reconciler: state %s -> %s", r.state, e.State)
	}
	r.state = e.State
	if r.buckets != nil {
		r.buckets.SetCurrentBucket(e.State.Bucket())
	}
	r.sink.StateChanged(e)
}

func (r *Reconciler) applyRotation(e models.RotationEvent) {
	if r.lastAngle != nil && math.Abs(e.Angle-*r.lastAngle) <= r.threshold {
		r.suppressed(models.KindRotation)
		return
	}
	angle := e.Angle
	r.lastAngle = &angle
	r.sink.RotationChanged(angle)
}

func (r *Reconciler) suppressed(kind models.Kind) {
	if r.observer != nil {
		r.observer.EventSuppressed(kind)
	}
}

func (r *Reconciler) State() models.State {
	return r.state
}

// LastAngle returns the last propagated angle, if any.
func (r *Reconciler) LastAngle() (float64, bool) {
	if r.lastAngle == nil {
		return 0, false
	}
	return *r.lastAngle, true
}

// Snapshot returns a copy of the canonical state. Durations are left
// for the caller to fill in.
func (r *Reconciler) Snapshot() models.Snapshot {
	snap := models.Snapshot{
		State:       r.state,
		LiveStats:   r.liveStats.Clone(),
		GlobalStats: models.GlobalStatsEvent{},
	}
	snap.GlobalStats.Merge(r.globalStats)
	if r.lastAngle != nil {
		a := *r.lastAngle
		snap.Angle = &a
	}
	return snap
}
