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

// Package queue holds stream events between read cycles. A newer event
// of a kind replaces any queued event of the same kind, and a drain
// returns high priority events first.
package queue

import (
	"slices"

	"github.com/ZaparooProject/cellboard/pkg/models"
)

// Queue is not safe for concurrent use. It is owned by the main loop.
type Queue struct {
	items []models.QueuedMessage
	seq   int
}

func New() *Queue {
	return &Queue{}
}

// Enqueue adds ev, removing any queued event of the same kind first.
func (q *Queue) Enqueue(ev models.Event, priority models.Priority) {
	kind := ev.Kind()
	q.items = slices.DeleteFunc(q.items, func(m models.QueuedMessage) bool {
		return m.Event.Kind() == kind
	})
	q.seq++
	q.items = append(q.items, models.QueuedMessage{
		Event:    ev,
		Priority: priority,
		Sequence: q.seq,
	})
}

// Drain returns every queued event, high priority first and in insertion
// order within a priority, and empties the queue.
func (q *Queue) Drain() []models.Event {
	if len(q.items) == 0 {
		return nil
	}

	slices.SortStableFunc(q.items, func(a, b models.QueuedMessage) int {
		return int(b.Priority) - int(a.Priority)
	})

	out := make([]models.Event, len(q.items))
	for i, m := range q.items {
		out[i] = m.Event
	}
	q.items = q.items[:0]
	return out
}

func (q *Queue) Len() int {
	return len(q.items)
}

// Pending returns a copy of the queued messages in queue order.
func (q *Queue) Pending() []models.QueuedMessage {
	return slices.Clone(q.items)
}
