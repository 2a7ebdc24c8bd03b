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

package testutils

import (
	"context"
	"errors"
	"net"

	"github.com/ZaparooProject/cellboard/pkg/helpers/syncutil"
)

var ErrRefused = errors.New("connection refused")

// PipeDialer answers dials with in-memory pipes. The server side of each
// successful dial is delivered on Accepted. Failures are scripted with
// FailNext.
type PipeDialer struct {
	Accepted chan net.Conn
	fail     int
	dials    int
	mu       syncutil.Mutex
}

func NewPipeDialer() *PipeDialer {
	return &PipeDialer{Accepted: make(chan net.Conn, 8)}
}

// FailNext makes the next n dials fail.
func (d *PipeDialer) FailNext(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = n
}

func (d *PipeDialer) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.dials++
	if d.fail > 0 {
		d.fail--
		d.mu.Unlock()
		return nil, ErrRefused
	}
	d.mu.Unlock()

	client, server := net.Pipe()
	d.Accepted <- server
	return client, nil
}

func (d *PipeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}
