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

// Package testutils provides fake serial ports and dialers for link
// tests.
package testutils

import (
	"errors"
	"time"

	"github.com/ZaparooProject/cellboard/pkg/helpers/syncutil"
	"github.com/ZaparooProject/cellboard/pkg/transport"
	"go.bug.st/serial"
)

var (
	ErrPortClosed = errors.New("port closed")
	ErrOpenFailed = errors.New("no such device")
)

// MockSerialPort hands out queued chunks, one per Read. With nothing
// queued a Read waits briefly and returns no data, like a read timeout.
type MockSerialPort struct {
	readErr    error
	CloseError error
	TimeoutErr error
	chunks     [][]byte
	reads      int
	closed     bool
	mu         syncutil.RWMutex
}

func NewMockSerialPort() *MockSerialPort {
	return &MockSerialPort{}
}

// Feed queues data to be returned by a single Read.
func (m *MockSerialPort) Feed(data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, []byte(data))
}

// Fail makes the next Read return err, as an unplugged device would.
func (m *MockSerialPort) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

func (m *MockSerialPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrPortClosed
	}
	m.reads++
	if m.readErr != nil {
		err := m.readErr
		m.mu.Unlock()
		return 0, err
	}
	if len(m.chunks) > 0 {
		n := copy(p, m.chunks[0])
		if n < len(m.chunks[0]) {
			m.chunks[0] = m.chunks[0][n:]
		} else {
			m.chunks = m.chunks[1:]
		}
		m.mu.Unlock()
		return n, nil
	}
	m.mu.Unlock()

	time.Sleep(5 * time.Millisecond)
	return 0, nil
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.CloseError
}

func (m *MockSerialPort) SetReadTimeout(_ time.Duration) error {
	return m.TimeoutErr
}

func (m *MockSerialPort) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Reads returns how many Read calls reached the port.
func (m *MockSerialPort) Reads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reads
}

// MockSerialFactory opens ports from a fixed script. Each call to Open
// consumes the next entry; a nil port means the open fails.
type MockSerialFactory struct {
	ports []*MockSerialPort
	modes []serial.Mode
	paths []string
	mu    syncutil.Mutex
}

func NewMockSerialFactory(ports ...*MockSerialPort) *MockSerialFactory {
	return &MockSerialFactory{ports: ports}
}

// Add appends ports to the script.
func (f *MockSerialFactory) Add(ports ...*MockSerialPort) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ports = append(f.ports, ports...)
}

func (f *MockSerialFactory) Open(path string, mode *serial.Mode) (transport.SerialPort, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	if mode != nil {
		f.modes = append(f.modes, *mode)
	}
	if len(f.ports) == 0 {
		return nil, ErrOpenFailed
	}
	p := f.ports[0]
	f.ports = f.ports[1:]
	if p == nil {
		return nil, ErrOpenFailed
	}
	return p, nil
}

// Opens returns how many times Open was called.
func (f *MockSerialFactory) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.paths)
}

func (f *MockSerialFactory) LastMode() serial.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.modes) == 0 {
		return serial.Mode{}
	}
	return f.modes[len(f.modes)-1]
}
