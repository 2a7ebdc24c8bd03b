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
	"github.com/ZaparooProject/cellboard/pkg/service/publishers"
	"github.com/rs/zerolog/log"
)

// startPublishers starts one MQTT publisher per enabled config entry, each
// on its own broker subscription. A publisher that cannot connect is
// skipped.
func (s *Service) startPublishers(factory publishers.ClientFactory) []*publishers.MQTTPublisher {
	active := make([]*publishers.MQTTPublisher, 0)

	for _, mqttCfg := range s.cfg.GetMQTTPublishers() {
		// nil means enabled
		if mqttCfg.Enabled != nil && !*mqttCfg.Enabled {
			continue
		}

		log.Info().Msgf("starting MQTT publisher: %s (topic: %s)", mqttCfg.Broker, mqttCfg.Topic)

		publisher := publishers.NewMQTTPublisher(mqttCfg.Broker, mqttCfg.Topic, mqttCfg.Filter)
		if factory != nil {
			publisher.WithClientFactory(factory)
		}

		notifs, id := s.broker.Subscribe(publisherBuffer, mqttCfg.Filter...)
		if err := publisher.Start(notifs); err != nil {
			log.Error().Err(err).Msgf("failed to start MQTT publisher for %s", mqttCfg.Broker)
			s.broker.Unsubscribe(id)
			continue
		}

		active = append(active, publisher)
	}

	if len(active) > 0 {
		log.Info().Msgf("started %d MQTT publisher(s)", len(active))
	}
	return active
}
