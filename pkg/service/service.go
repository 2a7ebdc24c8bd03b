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

// Package service wires the links, decoders, reconciler, aggregator and
// display fanout together on a single main loop.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/cellboard/pkg/config"
	"github.com/ZaparooProject/cellboard/pkg/display"
	"github.com/ZaparooProject/cellboard/pkg/metrics"
	"github.com/ZaparooProject/cellboard/pkg/models"
	"github.com/ZaparooProject/cellboard/pkg/queue"
	"github.com/ZaparooProject/cellboard/pkg/service/aggregator"
	"github.com/ZaparooProject/cellboard/pkg/service/broker"
	"github.com/ZaparooProject/cellboard/pkg/service/fanout"
	"github.com/ZaparooProject/cellboard/pkg/service/loop"
	"github.com/ZaparooProject/cellboard/pkg/service/publishers"
	"github.com/ZaparooProject/cellboard/pkg/service/reconciler"
	"github.com/ZaparooProject/cellboard/pkg/transport"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	notificationBuffer = 256
	publisherBuffer    = 100
	stopTimeout        = 5 * time.Second
)

type options struct {
	clock         clockwork.Clock
	dialer        transport.Dialer
	serialFactory transport.SerialPortFactory
	mqttClients   publishers.ClientFactory
	metrics       *metrics.Collector
}

type Option func(*options)

func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithDialer replaces the dialer of a TCP robot link.
func WithDialer(d transport.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithSerialPortFactory replaces how the IMU and UART robot ports are
// opened.
func WithSerialPortFactory(f transport.SerialPortFactory) Option {
	return func(o *options) {
		o.serialFactory = f
	}
}

func WithMQTTClientFactory(f publishers.ClientFactory) Option {
	return func(o *options) {
		o.mqttClients = f
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Service is the running display core. Everything below the links is
// owned by the loop goroutine.
type Service struct {
	cfg           *config.Instance
	cancel        context.CancelFunc
	loop          *loop.Loop
	queue         *queue.Queue
	reconciler    *reconciler.Reconciler
	aggregator    *aggregator.Aggregator
	fanout        *fanout.Fanout
	ticker        *loop.Repeater
	broker        *broker.Broker
	metrics       *metrics.Collector
	notifications chan models.Notification
	loopDone      chan struct{}
	done          chan struct{}
	links         []transport.Link
	publishers    []*publishers.MQTTPublisher
	stopOnce      sync.Once
	// robot rotation frames are dropped when the IMU owns rotation
	dropRobotRotation bool
	internalCounter   bool
}

// Start builds the service from cfg, connects its links and starts the
// display. It only fails on configuration the service cannot use.
func Start(cfg *config.Instance, opts ...Option) (*Service, error) {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = metrics.NewCollector()
	}

	entries, err := cfg.Layouts()
	if err != nil {
		return nil, fmt.Errorf("invalid display layouts: %w", err)
	}
	layout, err := display.ParseLayout(entries)
	if err != nil {
		return nil, fmt.Errorf("invalid display layouts: %w", err)
	}
	codes, err := cfg.IMUStateCodes()
	if err != nil {
		return nil, fmt.Errorf("invalid imu state codes: %w", err)
	}

	monitors := display.Monitors{Layout: layout, Count: len(cfg.ScreenIndices())}
	if monitors.Count == 0 {
		return nil, errors.New("no screens configured")
	}
	initial := cfg.InitialState()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:               cfg,
		cancel:            cancel,
		loop:              loop.New(o.clock, loop.DefaultBufferSize),
		queue:             queue.New(),
		aggregator:        aggregator.New(),
		metrics:           o.metrics,
		notifications:     make(chan models.Notification, notificationBuffer),
		loopDone:          make(chan struct{}),
		done:              make(chan struct{}),
		dropRobotRotation: cfg.RotationFromIMU(),
		internalCounter:   cfg.InternalTimeCounter(),
	}

	s.broker = broker.NewBroker(ctx, s.notifications, broker.WithDropHook(s.metrics.NotificationDropped))
	s.broker.Start()

	go func() {
		defer close(s.loopDone)
		if err := s.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("main loop exited")
		}
	}()

	ring := monitors.RingSurfaceIndex(monitors.Count)
	log.Info().Msgf("driving %d screen(s), ring on surface %d", monitors.Count, ring)
	s.fanout = fanout.New(
		s.loop,
		display.RemoteTargets(monitors, s.notifications),
		ring,
		fanout.WithStateDelay(cfg.StateDelay()),
		fanout.WithAlternationInterval(cfg.AlternationInterval()),
		fanout.WithOverlays(display.RemoteOverlay(s.notifications)),
		fanout.WithObserver(s.metrics),
	)

	s.aggregator.SetCurrentBucket(initial.Bucket())
	s.reconciler = reconciler.New(
		stateSink{Fanout: s.fanout, metrics: s.metrics},
		s.aggregator,
		reconciler.WithInitialState(initial),
		reconciler.WithRotationThreshold(cfg.RotationThreshold()),
		reconciler.WithObserver(s.metrics),
	)
	s.ticker = s.loop.NewRepeater(cfg.TickInterval(), s.tick)

	s.links = append(s.links, s.robotLink(o))
	if cfg.IMUEnabled() {
		s.links = append(s.links, s.imuLink(o, codes))
	}

	err = s.loop.Do(ctx, func() {
		s.fanout.Start()
		s.fanout.BroadcastState(models.StateEvent{State: initial})
		s.ticker.Start()
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start display: %w", err)
	}

	for _, link := range s.links {
		log.Info().Msgf("connecting %s link", link.Name())
		link.Connect()
	}

	log.Info().Msg("starting publishers")
	s.publishers = s.startPublishers(o.mqttClients)

	log.Info().Msg("service started")
	return s, nil
}

// tick advances the time accounting by one second.
func (s *Service) tick() {
	s.aggregator.Tick()
	d := s.aggregator.Durations()
	s.metrics.SetDurations(d)
	if s.internalCounter {
		s.fanout.BroadcastChartTick(s.aggregator.ChartData(), d)
	}
}

// Stop shuts the service down. The loop is stopped before the links so
// no callback runs against a half torn down display. Safe to call more
// than once.
func (s *Service) Stop() error {
	s.stopOnce.Do(func() {
		log.Info().Msg("stopping service")

		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		err := s.loop.Do(ctx, func() {
			s.ticker.Stop()
			s.fanout.Stop()
		})
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("error stopping display")
		}
		s.loop.Stop()
		<-s.loopDone

		for _, link := range s.links {
			link.Disconnect()
		}
		for _, p := range s.publishers {
			p.Stop()
		}

		s.cancel()
		<-s.broker.Done()

		log.Info().Msg("service stopped")
		close(s.done)
	})
	return nil
}

// Done is closed once Stop has finished.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

func (s *Service) Broker() *broker.Broker {
	return s.broker
}

func (s *Service) Metrics() *metrics.Collector {
	return s.metrics
}

// stateSink counts propagated state changes on their way to the fanout.
type stateSink struct {
	*fanout.Fanout
	metrics *metrics.Collector
}

func (s stateSink) StateChanged(ev models.StateEvent) {
	s.metrics.StateChanged(ev.State)
	s.Fanout.StateChanged(ev)
}
