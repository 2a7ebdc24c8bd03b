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

// Package publishers forwards display notifications to outside systems.
package publishers

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ZaparooProject/cellboard/pkg/models"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttPublishTimeout = 5 * time.Second
	mqttQuiesceMillis  = 250
)

// retainedMethods are published with the retain flag so a new dashboard
// sees the cell's current state straight away.
var retainedMethods = []string{
	models.NotificationStateChanged,
	models.NotificationGlobalStats,
	models.NotificationLinkStatus,
}

// ClientFactory builds an MQTT client from options.
type ClientFactory func(opts *mqtt.ClientOptions) mqtt.Client

// MQTTPublisher publishes notifications to an MQTT broker, one sub-topic
// per notification method.
type MQTTPublisher struct {
	client    mqtt.Client
	newClient ClientFactory
	stopCh    chan struct{}
	broker    string
	topic     string
	filter    []string
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// NewMQTTPublisher creates a publisher for broker (host:port) under topic.
// An empty filter publishes every notification.
func NewMQTTPublisher(broker, topic string, filter []string) *MQTTPublisher {
	return &MQTTPublisher{
		broker:    broker,
		topic:     strings.TrimSuffix(topic, "/"),
		filter:    filter,
		stopCh:    make(chan struct{}),
		newClient: mqtt.NewClient,
	}
}

// WithClientFactory replaces the paho client constructor.
func (p *MQTTPublisher) WithClientFactory(f ClientFactory) *MQTTPublisher {
	p.newClient = f
	return p
}

// Start connects to the broker and publishes from notifications until Stop
// is called or the channel closes.
func (p *MQTTPublisher) Start(notifications <-chan models.Notification) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker("tcp://" + p.broker)
	opts.SetClientID("cellboard-" + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetWill(p.topic+"/"+models.NotificationLinkStatus, `{"link":"display","state":"disconnected"}`, 0, true)

	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Msgf("mqtt publisher: connected to %s", p.broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt publisher: connection lost")
	}

	p.client = p.newClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return errors.New("timed out connecting to MQTT broker")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	log.Info().Msgf("mqtt publisher: publishing to %s under %s", p.broker, p.topic)

	p.wg.Add(1)
	go p.publishNotifications(notifications)

	return nil
}

// Stop ends publishing and disconnects. It is safe to call more than once.
func (p *MQTTPublisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	p.wg.Wait()

	if p.client != nil && p.client.IsConnected() {
		log.Debug().Msg("mqtt publisher: disconnecting")
		p.client.Disconnect(mqttQuiesceMillis)
	}
}

func (p *MQTTPublisher) publishNotifications(notifications <-chan models.Notification) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			log.Debug().Msg("mqtt publisher: stopping notification publisher")
			return
		case notif, ok := <-notifications:
			if !ok {
				log.Debug().Msg("mqtt publisher: notification channel closed")
				return
			}
			if !p.matchesFilter(notif.Method) {
				continue
			}
			p.publish(notif)
		}
	}
}

func (p *MQTTPublisher) publish(notif models.Notification) {
	payload := []byte(notif.Params)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	retained := slices.Contains(retainedMethods, notif.Method)
	token := p.client.Publish(p.Topic(notif.Method), 0, retained, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		log.Warn().Msgf("mqtt publisher: timed out publishing %s", notif.Method)
		return
	}
	if err := token.Error(); err != nil {
		log.Error().Err(err).Msgf("mqtt publisher: failed to publish %s", notif.Method)
		return
	}

	log.Debug().Msgf("mqtt publisher: published %s notification", notif.Method)
}

// Topic returns the topic a notification method is published on.
func (p *MQTTPublisher) Topic(method string) string {
	return p.topic + "/" + method
}

func (p *MQTTPublisher) matchesFilter(method string) bool {
	return len(p.filter) == 0 || slices.Contains(p.filter, method)
}
