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
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ZaparooProject/cellboard/pkg/models"
)

const (
	prefixRotation = "r"
	prefixState    = "s"
)

// RotationMap converts a raw sensor angle into display degrees.
type RotationMap struct {
	AxisSign float64
	Offset   float64
}

// DefaultRotationMap matches the sensor mounting on the shelf.
var DefaultRotationMap = RotationMap{AxisSign: -1, Offset: -1.7}

func (m RotationMap) Valid() bool {
	return m.AxisSign == 1 || m.AxisSign == -1
}

func (m RotationMap) Apply(raw float64) float64 {
	return m.AxisSign*raw + m.Offset
}

// DefaultStateCodes maps the sensor's numeric state codes.
var DefaultStateCodes = map[int]models.State{
	1: models.StateReducedSpeed,
	2: models.StateNormal,
	3: models.StateStopped,
}

// SerialDecoder decodes prefix:value lines from the IMU link.
type SerialDecoder struct {
	Codes    map[int]models.State
	Rotation RotationMap
}

func NewSerialDecoder(rot RotationMap, codes map[int]models.State) *SerialDecoder {
	if codes == nil {
		codes = DefaultStateCodes
	}
	return &SerialDecoder{Rotation: rot, Codes: codes}
}

// DecodeLine decodes one serial line. Leading and trailing whitespace,
// including any line terminator, is ignored.
func (d *SerialDecoder) DecodeLine(line []byte) (models.Event, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, ErrEmptyLine
	}

	prefix, value, ok := strings.Cut(string(line), ":")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	value = strings.TrimSpace(value)

	switch prefix {
	case prefixRotation:
		raw, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: rotation %q", ErrMalformedLine, value)
		}
		if math.IsNaN(raw) || math.IsInf(raw, 0) {
			return nil, fmt.Errorf("%w: rotation %q", ErrTypeMismatch, value)
		}
		return models.RotationEvent{Angle: d.Rotation.Apply(raw)}, nil
	case prefixState:
		code, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%w: state %q", ErrMalformedLine, value)
		}
		state, ok := d.Codes[code]
		if !ok {
			return nil, fmt.Errorf("%w: code %d", ErrUnknownState, code)
		}
		return models.StateEvent{State: state}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPrefix, prefix)
	}
}

// ValidLine reports whether line decodes to an event. It is used as
// the serial link watchdog's liveness check.
func (d *SerialDecoder) ValidLine(line []byte) bool {
	_, err := d.DecodeLine(line)
	return err == nil
}
