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
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const (
	DefaultSerialReconnectInterval = 2000 * time.Millisecond
	DefaultBaudRate                = 115200
	serialReadTimeout              = 100 * time.Millisecond
)

// SerialPort is the part of serial.Port the link uses.
type SerialPort interface {
	Read(p []byte) (int, error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// SerialPortFactory opens a serial port.
type SerialPortFactory func(path string, mode *serial.Mode) (SerialPort, error)

func DefaultSerialPortFactory(path string, mode *serial.Mode) (SerialPort, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// SerialConfig describes a serial link.
type SerialConfig struct {
	Name              string
	Port              string
	Delimiters        []byte
	BaudRate          int
	ReconnectInterval time.Duration
	// Watchdog forces a reconnect when no valid line has arrived for this
	// long. Zero disables it.
	Watchdog     time.Duration
	MaxFrameSize int
}

// SerialLink reads lines from a serial port on a dedicated goroutine.
type SerialLink struct {
	factory   SerialPortFactory
	validator func([]byte) bool
	supervisor
	cfg SerialConfig
}

var _ Link = (*SerialLink)(nil)

func NewSerialLink(cfg SerialConfig, opts ...Option) *SerialLink {
	o := buildOptions(opts)
	if cfg.Name == "" {
		cfg.Name = "serial"
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if len(cfg.Delimiters) == 0 {
		cfg.Delimiters = []byte{'\n', '\r'}
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = DefaultSerialReconnectInterval
	}
	if o.factory == nil {
		o.factory = DefaultSerialPortFactory
	}
	if o.validator == nil {
		o.validator = func([]byte) bool { return true }
	}

	l := &SerialLink{cfg: cfg, factory: o.factory, validator: o.validator}
	l.name = cfg.Name
	l.clock = o.clock
	l.dispatch = o.dispatch
	l.interval = cfg.ReconnectInterval
	l.attempt = l.open
	return l
}

func (l *SerialLink) Config() SerialConfig {
	return l.cfg
}

func (l *SerialLink) open(gen uint64) {
	defer l.wg.Done()

	port, err := l.factory(l.cfg.Port, &serial.Mode{BaudRate: l.cfg.BaudRate})
	if err != nil {
		l.fail(gen, fmt.Errorf("%s: %w", l.cfg.Port, err))
		return
	}
	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		_ = port.Close()
		l.fail(gen, fmt.Errorf("failed to set read timeout: %w", err))
		return
	}

	if !l.established(gen, port) {
		return
	}
	go l.read(gen, port)
}

func (l *SerialLink) read(gen uint64, port SerialPort) {
	defer l.wg.Done()

	split := newSplitter(l.cfg.Delimiters, l.cfg.MaxFrameSize)
	buf := make([]byte, readBufferSize)
	lastValid := l.clock.Now()

	for {
		if !l.current(gen) {
			return
		}

		n, err := port.Read(buf)
		if err != nil {
			l.fail(gen, fmt.Errorf("%w: %w", ErrConnectionLost, err))
			return
		}

		if n > 0 {
			lines, ferr := split.Push(buf[:n])
			if ferr != nil {
				log.Warn().Err(ferr).Msgf("%s: dropping oversized line", l.name)
				l.emitError(ferr)
			}
			for _, line := range lines {
				if l.validator(line) {
					lastValid = l.clock.Now()
				}
			}
			if len(lines) > 0 && l.current(gen) {
				l.emitFrames(lines)
			}
		}

		if l.cfg.Watchdog > 0 && l.clock.Since(lastValid) > l.cfg.Watchdog {
			l.fail(gen, fmt.Errorf("%w: %s", ErrWatchdogTimeout, l.cfg.Watchdog))
			return
		}
	}
}
