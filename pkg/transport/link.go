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

package transport

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/ZaparooProject/cellboard/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// session is one open connection, serial or stream.
type session interface {
	io.Closer
}

// supervisor holds what both link kinds share: callbacks, connection
// state and the fixed interval reconnect timer. Each connection attempt
// gets a new generation so a stale goroutine can tell it has been
// replaced.
type supervisor struct {
	ctx       context.Context
	clock     clockwork.Clock
	dispatch  Dispatcher
	reconnect clockwork.Timer
	sess      session
	cancel    context.CancelFunc
	onFrame   func([]byte)
	onError   func(error)
	onCycle   func()
	onState   func(ConnState)
	attempt   func(gen uint64)
	name      string
	wg        sync.WaitGroup
	interval  time.Duration
	gen       uint64
	state     ConnState
	mu        syncutil.Mutex
	active    bool
}

func (s *supervisor) Name() string { return s.name }

func (s *supervisor) OnFrame(fn func([]byte)) { s.onFrame = fn }

func (s *supervisor) OnError(fn func(error)) { s.onError = fn }

func (s *supervisor) OnCycle(fn func()) { s.onCycle = fn }

func (s *supervisor) OnStateChange(fn func(ConnState)) { s.onState = fn }

func (s *supervisor) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ReconnectScheduled reports whether a reconnect timer is armed.
func (s *supervisor) ReconnectScheduled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnect != nil
}

// Connect starts the first attempt. It does nothing if the link is
// already active.
func (s *supervisor) Connect() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	gen := s.begin()
	s.mu.Unlock()

	s.emitState(Connecting)
	go s.attempt(gen)
}

// begin starts a new generation in the Connecting state. Caller holds mu
// and must add the attempt goroutine.
func (s *supervisor) begin() uint64 {
	s.gen++
	s.state = Connecting
	s.wg.Add(1)
	return s.gen
}

// Disconnect closes the connection, cancels any reconnect and waits for
// the link's goroutines to exit. Callers must not hold up the dispatcher
// while calling it.
func (s *supervisor) Disconnect() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.gen++
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.sess != nil {
		if err := s.sess.Close(); err != nil {
			log.Debug().Err(err).Msgf("%s: error closing connection", s.name)
		}
		s.sess = nil
	}
	prev := s.state
	s.state = Disconnected
	s.mu.Unlock()

	s.wg.Wait()
	if prev != Disconnected {
		s.emitState(Disconnected)
	}
}

// established records a successful attempt. It reports false, after
// closing sess, if the attempt was superseded.
func (s *supervisor) established(gen uint64, sess session) bool {
	s.mu.Lock()
	if !s.active || gen != s.gen {
		s.mu.Unlock()
		_ = sess.Close()
		return false
	}
	s.sess = sess
	s.state = Connected
	s.wg.Add(1)
	s.mu.Unlock()

	log.Info().Msgf("%s: connected", s.name)
	s.emitState(Connected)
	return true
}

// fail tears down generation gen after an error and arms the reconnect
// timer. Errors from superseded generations are ignored.
func (s *supervisor) fail(gen uint64, err error) {
	s.mu.Lock()
	if !s.active || gen != s.gen {
		s.mu.Unlock()
		return
	}
	if s.sess != nil {
		_ = s.sess.Close()
		s.sess = nil
	}
	s.state = Disconnected
	s.scheduleReconnect()
	s.mu.Unlock()

	log.Warn().Err(err).Msgf("%s: reconnecting in %s", s.name, s.interval)
	s.emitError(err)
	s.emitState(Disconnected)
}

// scheduleReconnect arms the reconnect timer. Caller holds mu.
func (s *supervisor) scheduleReconnect() {
	if s.reconnect != nil {
		return
	}
	s.reconnect = s.clock.AfterFunc(s.interval, func() {
		s.mu.Lock()
		if !s.active {
			s.mu.Unlock()
			return
		}
		s.reconnect = nil
		gen := s.begin()
		s.mu.Unlock()

		s.emitState(Connecting)
		s.attempt(gen)
	})
}

// context returns the context cancelled by Disconnect.
func (s *supervisor) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

func (s *supervisor) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && gen == s.gen
}

func (s *supervisor) post(fn func()) {
	if s.dispatch == nil {
		fn()
		return
	}
	s.dispatch.Post(fn)
}

// emitFrames delivers one read cycle's frames followed by the cycle
// callback as a single unit.
func (s *supervisor) emitFrames(frames [][]byte) {
	onFrame, onCycle := s.onFrame, s.onCycle
	s.post(func() {
		if onFrame != nil {
			for _, f := range frames {
				onFrame(f)
			}
		}
		if onCycle != nil {
			onCycle()
		}
	})
}

func (s *supervisor) emitError(err error) {
	if fn := s.onError; fn != nil {
		s.post(func() { fn(err) })
	}
}

func (s *supervisor) emitState(state ConnState) {
	if fn := s.onState; fn != nil {
		s.post(func() { fn(state) })
	}
}
