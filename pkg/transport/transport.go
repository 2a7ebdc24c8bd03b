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

// Package transport provides the byte links the display listens on: a
// TCP stream to the robot controller and serial ports for the IMU or a
// UART-attached controller. Links reconnect on their own at a fixed
// interval and report everything through callbacks.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jonboulle/clockwork"
)

var (
	ErrConnectionLost  = errors.New("connection lost")
	ErrFrameTooLong    = errors.New("frame exceeds maximum size")
	ErrWatchdogTimeout = errors.New("no valid data before watchdog timeout")
)

const (
	DefaultMaxFrameSize = 1 << 20
	DefaultDialTimeout  = 10 * time.Second
	readBufferSize      = 4096
)

// ConnState is the connection state of a link.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// Dispatcher runs callbacks on the consumer's goroutine. The main loop
// satisfies it.
type Dispatcher interface {
	Post(fn func()) bool
}

// Link is a byte source that splits its input into frames.
//
// Callbacks must be registered before Connect. They run through the
// Dispatcher when one is set, otherwise on the link's own goroutines.
type Link interface {
	Name() string
	Connect()
	Disconnect()
	OnFrame(fn func(frame []byte))
	OnError(fn func(err error))
	OnCycle(fn func())
	OnStateChange(fn func(state ConnState))
	State() ConnState
	ReconnectScheduled() bool
}

// Dialer opens stream connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type options struct {
	clock     clockwork.Clock
	dispatch  Dispatcher
	dialer    Dialer
	factory   SerialPortFactory
	validator func(line []byte) bool
}

type Option func(*options)

func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

func WithDispatcher(d Dispatcher) Option {
	return func(o *options) {
		o.dispatch = d
	}
}

func WithDialer(d Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

func WithSerialPortFactory(f SerialPortFactory) Option {
	return func(o *options) {
		o.factory = f
	}
}

// WithLineValidator sets the check the serial watchdog uses to decide a
// line counts as live data.
func WithLineValidator(fn func(line []byte) bool) Option {
	return func(o *options) {
		o.validator = fn
	}
}

func buildOptions(opts []Option) options {
	o := options{
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
