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

package fanout

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/ZaparooProject/cellboard/pkg/helpers/syncutil"
	"github.com/ZaparooProject/cellboard/pkg/models"
	"github.com/ZaparooProject/cellboard/pkg/service/loop"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var errWidget = errors.New("widget unavailable")

// mockWidget implements every capability and records what it received.
type mockWidget struct {
	states []models.State
	angles []float64
	live   []models.LiveStats
	global []models.GlobalStatsEvent
	charts []models.ChartData
	mu     syncutil.Mutex
}

func (w *mockWidget) StateChanged(ev models.StateEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.states = append(w.states, ev.State)
	return nil
}

func (w *mockWidget) RotationChanged(angle float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.angles = append(w.angles, angle)
	return nil
}

func (w *mockWidget) LiveStats(partial models.LiveStats) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.live = append(w.live, partial)
	return nil
}

func (w *mockWidget) GlobalStats(partial models.GlobalStatsEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.global = append(w.global, partial)
	return nil
}

func (w *mockWidget) ChartTick(chart models.ChartData, _ models.StateBucketDurations) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.charts = append(w.charts, chart)
	return nil
}

func (w *mockWidget) States() []models.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.states)
}

func (w *mockWidget) Angles() []float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.angles)
}

func (w *mockWidget) Live() []models.LiveStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.live)
}

func (w *mockWidget) Global() []models.GlobalStatsEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.global)
}

func (w *mockWidget) Charts() []models.ChartData {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.charts)
}

// rotationOnly only follows the shelf angle.
type rotationOnly struct {
	angles []float64
	mu     syncutil.Mutex
}

func (w *rotationOnly) RotationChanged(angle float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.angles = append(w.angles, angle)
	return nil
}

type brokenWidget struct {
	panics bool
}

func (w brokenWidget) StateChanged(models.StateEvent) error {
	if w.panics {
		panic("render failed")
	}
	return errWidget
}

func (w brokenWidget) RotationChanged(float64) error {
	if w.panics {
		panic("render failed")
	}
	return errWidget
}

type mockSwitcher struct {
	shown []int
	mu    syncutil.Mutex
}

func (s *mockSwitcher) ShowWidget(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, index)
	return nil
}

func (s *mockSwitcher) Shown() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.shown)
}

type failureCounter struct {
	surfaces []int
	mu       syncutil.Mutex
}

func (c *failureCounter) WidgetFailed(surface int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.surfaces = append(c.surfaces, surface)
}

func (c *failureCounter) Surfaces() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.surfaces)
}

func startLoop(t *testing.T, clock clockwork.Clock) *loop.Loop {
	t.Helper()

	l := loop.New(clock, 0)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})
	return l
}

func do(t *testing.T, l *loop.Loop, fn func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.Do(ctx, fn))
}

func waitForTimers(t *testing.T, clock *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, n))
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond, msg)
}
