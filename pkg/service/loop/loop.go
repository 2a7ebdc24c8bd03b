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

// Package loop provides the single goroutine that owns all reconcile and
// presentation state, and timers whose callbacks run on it.
package loop

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ErrStopped is returned when work is submitted to a loop that has exited.
var ErrStopped = errors.New("loop stopped")

const DefaultBufferSize = 256

// Loop runs posted functions one at a time in submission order.
type Loop struct {
	clock    clockwork.Clock
	tasks    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

func New(clock clockwork.Clock, bufferSize int) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Loop{
		clock: clock,
		tasks: make(chan func(), bufferSize),
		done:  make(chan struct{}),
	}
}

func (l *Loop) Clock() clockwork.Clock {
	return l.clock
}

// Run executes tasks until ctx is cancelled or Stop is called. Tasks
// still queued at that point are discarded.
func (l *Loop) Run(ctx context.Context) error {
	defer l.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			l.exec(fn)
		}
	}
}

func (*Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("loop task panicked")
		}
	}()
	fn()
}

// Stop makes Run return. Safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Post queues fn to run on the loop. It blocks while the queue is full
// and reports false if the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterFunc runs fn on the loop once d has elapsed on the loop's clock.
func (l *Loop) AfterFunc(d time.Duration, fn func()) clockwork.Timer {
	return l.clock.AfterFunc(d, func() {
		l.Post(fn)
	})
}
