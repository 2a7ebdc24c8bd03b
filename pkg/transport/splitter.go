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

import "bytes"

// splitter cuts a byte stream into frames on any of its delimiters.
// Empty frames are skipped. A frame that grows past max is dropped up to
// the next delimiter.
type splitter struct {
	delims  []byte
	buf     []byte
	max     int
	discard bool
}

func newSplitter(delims []byte, max int) *splitter {
	if max <= 0 {
		max = DefaultMaxFrameSize
	}
	return &splitter{delims: bytes.Clone(delims), max: max}
}

// index returns the position of the first delimiter byte in data. Bytes
// are compared as bytes, never decoded as UTF-8.
func (s *splitter) index(data []byte) int {
	if len(s.delims) == 1 {
		return bytes.IndexByte(data, s.delims[0])
	}
	for i, b := range data {
		if bytes.IndexByte(s.delims, b) >= 0 {
			return i
		}
	}
	return -1
}

// Push adds data and returns the frames it completed. Returned frames do
// not alias the splitter's buffer.
func (s *splitter) Push(data []byte) (frames [][]byte, err error) {
	for {
		i := s.index(data)
		if i < 0 {
			if !s.discard {
				s.buf = append(s.buf, data...)
				if len(s.buf) > s.max {
					s.buf = s.buf[:0]
					s.discard = true
					err = ErrFrameTooLong
				}
			}
			return frames, err
		}

		if s.discard {
			s.discard = false
		} else {
			s.buf = append(s.buf, data[:i]...)
			switch {
			case len(s.buf) > s.max:
				err = ErrFrameTooLong
			case len(s.buf) > 0:
				frames = append(frames, bytes.Clone(s.buf))
			}
		}
		s.buf = s.buf[:0]
		data = data[i+1:]
	}
}

// Pending returns how many bytes of an incomplete frame are buffered.
func (s *splitter) Pending() int {
	return len(s.buf)
}
