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

package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/ZaparooProject/cellboard/pkg/helpers/syncutil"
	"github.com/ZaparooProject/cellboard/pkg/transport"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type recorder struct {
	frames []string
	errs   []error
	states []transport.ConnState
	// cycleAt holds len(frames) at each cycle boundary.
	cycleAt []int
	mu      syncutil.Mutex
}

func record(l transport.Link) *recorder {
	r := &recorder{}
	l.OnFrame(func(f []byte) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.frames = append(r.frames, string(f))
	})
	l.OnCycle(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.cycleAt = append(r.cycleAt, len(r.frames))
	})
	l.OnError(func(err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.errs = append(r.errs, err)
	})
	l.OnStateChange(func(s transport.ConnState) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.states = append(r.states, s)
	})
	return r
}

func (r *recorder) Frames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.frames...)
}

func (r *recorder) Cycles() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.cycleAt...)
}

func (r *recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *recorder) LastState() transport.ConnState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return transport.Disconnected
	}
	return r.states[len(r.states)-1]
}

// waitForTimers blocks until n timers are armed on the fake clock.
func waitForTimers(t *testing.T, clock *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, n))
}

func waitForState(t *testing.T, l transport.Link, want transport.ConnState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return l.State() == want
	}, waitFor, time.Millisecond, "link never reached %s", want)
}
