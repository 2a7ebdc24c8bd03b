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

package decoder

import (
	"testing"

	"github.com/ZaparooProject/cellboard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialDecoder_Rotation(t *testing.T) {
	t.Parallel()

	d := NewSerialDecoder(DefaultRotationMap, nil)

	tests := []struct {
		name string
		line string
		want float64
	}{
		{name: "positive", line: "r:10.0", want: -11.7},
		{name: "negative", line: "r:-90.5\r\n", want: 88.8},
		{name: "uppercase prefix with spaces", line: " R : 0 ", want: -1.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ev, err := d.DecodeLine([]byte(tt.line))
			require.NoError(t, err)
			rot, ok := ev.(models.RotationEvent)
			require.True(t, ok)
			assert.InDelta(t, tt.want, rot.Angle, 1e-9)
		})
	}
}

func TestSerialDecoder_State(t *testing.T) {
	t.Parallel()

	d := NewSerialDecoder(DefaultRotationMap, nil)

	tests := []struct {
		line string
		want models.State
	}{
		{line: "s:1", want: models.StateReducedSpeed},
		{line: "s:2", want: models.StateNormal},
		{line: "s:3\n", want: models.StateStopped},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()

			ev, err := d.DecodeLine([]byte(tt.line))
			require.NoError(t, err)
			assert.Equal(t, models.StateEvent{State: tt.want}, ev)
			assert.True(t, ev.(models.StateEvent).Bare())
		})
	}
}

func TestSerialDecoder_CustomCodes(t *testing.T) {
	t.Parallel()

	d := NewSerialDecoder(RotationMap{AxisSign: 1}, map[int]models.State{7: models.StateIdle})

	ev, err := d.DecodeLine([]byte("s:7"))
	require.NoError(t, err)
	assert.Equal(t, models.StateEvent{State: models.StateIdle}, ev)

	_, err = d.DecodeLine([]byte("s:2"))
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestSerialDecoder_Malformed(t *testing.T) {
	t.Parallel()

	d := NewSerialDecoder(DefaultRotationMap, nil)

	tests := []struct {
		wantErr error
		line    string
	}{
		{line: "", wantErr: ErrEmptyLine},
		{line: "\r\n", wantErr: ErrEmptyLine},
		{line: "r10.0", wantErr: ErrMalformedLine},
		{line: "r:abc", wantErr: ErrMalformedLine},
		{line: "r:NaN", wantErr: ErrTypeMismatch},
		{line: "r:+Inf", wantErr: ErrTypeMismatch},
		{line: "s:two", wantErr: ErrMalformedLine},
		{line: "s:9", wantErr: ErrUnknownState},
		{line: "x:1", wantErr: ErrUnknownPrefix},
		{line: ":1", wantErr: ErrUnknownPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()

			ev, err := d.DecodeLine([]byte(tt.line))
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, ev)
			assert.False(t, d.ValidLine([]byte(tt.line)))
		})
	}
}

func TestRotationMap_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, DefaultRotationMap.Valid())
	assert.True(t, RotationMap{AxisSign: 1, Offset: 3}.Valid())
	assert.False(t, RotationMap{}.Valid())
	assert.False(t, RotationMap{AxisSign: 2}.Valid())
}
