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

package service

import (
	"context"
	"fmt"

	"github.com/ZaparooProject/cellboard/pkg/models"
)

// Snapshot returns the reconciled state with the current bucket
// durations. It runs on the loop and satisfies api.StateSource.
func (s *Service) Snapshot(ctx context.Context) (models.Snapshot, error) {
	var snap models.Snapshot
	err := s.loop.Do(ctx, func() {
		snap = s.reconciler.Snapshot()
		snap.Durations = s.aggregator.Durations()
	})
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return snap, nil
}

// Chart returns the internally counted state times as chart data.
func (s *Service) Chart(ctx context.Context) (models.ChartData, error) {
	var chart models.ChartData
	err := s.loop.Do(ctx, func() {
		chart = s.aggregator.ChartData()
	})
	if err != nil {
		return models.ChartData{}, fmt.Errorf("failed to read chart: %w", err)
	}
	return chart, nil
}

// LinkStates returns the connection state of every link by name.
func (s *Service) LinkStates() map[string]string {
	states := make(map[string]string, len(s.links))
	for _, link := range s.links {
		states[link.Name()] = link.State().String()
	}
	return states
}
