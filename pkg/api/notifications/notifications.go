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

// Package notifications builds the notifications pushed to API clients
// and the MQTT publisher.
package notifications

import (
	"encoding/json"

	"github.com/ZaparooProject/cellboard/pkg/models"
	"github.com/rs/zerolog/log"
)

// send marshals payload and queues the notification without blocking.
// A full channel drops the notification.
func send(ns chan<- models.Notification, method string, payload any) {
	var params json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Msgf("error marshalling %s notification", method)
			return
		}
		params = b
	}

	select {
	case ns <- models.Notification{Method: method, Params: params}:
	default:
		log.Warn().Str("method", method).Msg("notification channel full, dropping notification")
	}
}

func StateChanged(ns chan<- models.Notification, payload models.StateChangedParams) {
	send(ns, models.NotificationStateChanged, payload)
}

func RotationChanged(ns chan<- models.Notification, payload models.RotationChangedParams) {
	send(ns, models.NotificationRotationChanged, payload)
}

func LiveStats(ns chan<- models.Notification, payload models.LiveStatsParams) {
	send(ns, models.NotificationLiveStats, payload)
}

func GlobalStats(ns chan<- models.Notification, payload models.GlobalStatsParams) {
	send(ns, models.NotificationGlobalStats, payload)
}

func ChartTick(ns chan<- models.Notification, payload models.ChartTickParams) {
	send(ns, models.NotificationChartTick, payload)
}

func SurfaceVisible(ns chan<- models.Notification, payload models.SurfaceVisibleParams) {
	send(ns, models.NotificationSurfaceVisible, payload)
}

func LinkStatus(ns chan<- models.Notification, payload models.LinkStatusParams) {
	send(ns, models.NotificationLinkStatus, payload)
}
