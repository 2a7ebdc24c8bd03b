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
	"errors"

	"github.com/ZaparooProject/cellboard/pkg/models"
)

var (
	ErrInvalidUTF8   = errors.New("frame is not valid UTF-8")
	ErrInvalidJSON   = errors.New("frame is not a JSON object")
	ErrMissingType   = errors.New("missing type field")
	ErrUnknownType   = errors.New("unknown message type")
	ErrMissingField  = errors.New("missing required field")
	ErrTypeMismatch  = errors.New("field has wrong type")
	ErrEmptyLine     = errors.New("empty line")
	ErrMalformedLine = errors.New("malformed serial line")
	ErrUnknownPrefix = errors.New("unknown serial prefix")

	// ErrUnknownState is shared with models so callers can match either.
	ErrUnknownState = models.ErrUnknownState
)

var reasons = []struct {
	err    error
	reason string
}{
	{ErrInvalidUTF8, "invalid_utf8"},
	{ErrInvalidJSON, "invalid_json"},
	{ErrMissingType, "missing_type"},
	{ErrUnknownType, "unknown_type"},
	{ErrUnknownState, "unknown_state"},
	{ErrMissingField, "missing_field"},
	{ErrTypeMismatch, "type_mismatch"},
	{ErrEmptyLine, "empty_line"},
	{ErrMalformedLine, "malformed_line"},
	{ErrUnknownPrefix, "unknown_prefix"},
}

// Reason returns a short stable label for a decode error, suitable for
// metric labels.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "other"
}
