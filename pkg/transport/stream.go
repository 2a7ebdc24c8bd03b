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
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultStreamReconnectInterval = 5000 * time.Millisecond

// StreamConfig describes a TCP link to the robot controller.
type StreamConfig struct {
	Name              string
	Host              string
	Port              int
	ReconnectInterval time.Duration
	DialTimeout       time.Duration
	MaxFrameSize      int
	Delimiter         byte
}

func (c StreamConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// StreamLink reads delimited frames from a TCP connection. Every read
// that completes at least one frame is one cycle: its frames are handed
// over in order followed by a single OnCycle call.
type StreamLink struct {
	dialer Dialer
	supervisor
	cfg StreamConfig
}

var _ Link = (*StreamLink)(nil)

func NewStreamLink(cfg StreamConfig, opts ...Option) *StreamLink {
	o := buildOptions(opts)
	if cfg.Name == "" {
		cfg.Name = "stream"
	}
	if cfg.Delimiter == 0 {
		cfg.Delimiter = '\n'
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = DefaultStreamReconnectInterval
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = DefaultMaxFrameSize
	}
	if o.dialer == nil {
		o.dialer = &net.Dialer{}
	}

	l := &StreamLink{cfg: cfg, dialer: o.dialer}
	l.name = cfg.Name
	l.clock = o.clock
	l.dispatch = o.dispatch
	l.interval = cfg.ReconnectInterval
	l.attempt = l.dial
	return l
}

func (l *StreamLink) Config() StreamConfig {
	return l.cfg
}

func (l *StreamLink) dial(gen uint64) {
	defer l.wg.Done()

	addr := l.cfg.Address()
	ctx, cancel := context.WithTimeout(l.context(), l.cfg.DialTimeout)
	conn, err := l.dialer.DialContext(ctx, "tcp", addr)
	cancel()
	if err != nil {
		l.fail(gen, fmt.Errorf("dial %s: %w", addr, err))
		return
	}

	if !l.established(gen, conn) {
		return
	}
	go l.read(gen, conn)
}

// read owns conn until it fails or the link moves on to a newer
// generation. Partial frames die with it.
func (l *StreamLink) read(gen uint64, conn net.Conn) {
	defer l.wg.Done()

	split := newSplitter([]byte{l.cfg.Delimiter}, l.cfg.MaxFrameSize)
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames, ferr := split.Push(buf[:n])
			if ferr != nil {
				log.Warn().Err(ferr).Msgf("%s: dropping oversized frame", l.name)
				l.emitError(ferr)
			}
			if len(frames) > 0 && l.current(gen) {
				l.emitFrames(frames)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("%w: closed by peer", ErrConnectionLost)
			} else {
				err = fmt.Errorf("%w: %w", ErrConnectionLost, err)
			}
			if split.Pending() > 0 {
				log.Debug().Msgf("%s: discarding %d bytes of partial frame", l.name, split.Pending())
			}
			l.fail(gen, err)
			return
		}
	}
}
