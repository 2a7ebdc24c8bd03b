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
	"github.com/ZaparooProject/cellboard/pkg/api/notifications"
	"github.com/ZaparooProject/cellboard/pkg/config"
	"github.com/ZaparooProject/cellboard/pkg/decoder"
	"github.com/ZaparooProject/cellboard/pkg/models"
	"github.com/ZaparooProject/cellboard/pkg/transport"
	"github.com/rs/zerolog/log"
)

const (
	LinkRobot = "robot"
	LinkIMU   = "imu"
)

// robotLink builds the controller link for the configured transport.
// Both carry JSON frames and go through the queue.
func (s *Service) robotLink(o options) transport.Link {
	robot := s.cfg.Robot()
	common := []transport.Option{
		transport.WithClock(o.clock),
		transport.WithDispatcher(s.loop),
	}

	var link transport.Link
	if robot.Transport == config.TransportUART {
		link = transport.NewSerialLink(transport.SerialConfig{
			Name:              LinkRobot,
			Port:              robot.UARTPort,
			Delimiters:        []byte{s.cfg.RobotDelimiter()},
			BaudRate:          robot.BaudRate,
			ReconnectInterval: s.cfg.RobotReconnectInterval(),
			MaxFrameSize:      robot.MaxFrameBytes,
		}, append(common, transport.WithSerialPortFactory(o.serialFactory))...)
	} else {
		link = transport.NewStreamLink(transport.StreamConfig{
			Name:              LinkRobot,
			Host:              robot.Host,
			Port:              robot.Port,
			Delimiter:         s.cfg.RobotDelimiter(),
			ReconnectInterval: s.cfg.RobotReconnectInterval(),
			MaxFrameSize:      robot.MaxFrameBytes,
		}, append(common, transport.WithDialer(o.dialer))...)
	}

	link.OnFrame(s.handleRobotFrame)
	link.OnCycle(s.drainQueue)
	s.watchLink(link)
	return link
}

// imuLink builds the rotation sensor link. Its lines skip the queue and
// go straight to the reconciler.
func (s *Service) imuLink(o options, codes map[int]models.State) transport.Link {
	imu := s.cfg.IMU()
	dec := decoder.NewSerialDecoder(decoder.RotationMap{
		AxisSign: float64(imu.AxisSign),
		Offset:   imu.Offset,
	}, codes)

	link := transport.NewSerialLink(transport.SerialConfig{
		Name:              LinkIMU,
		Port:              imu.Port,
		BaudRate:          imu.BaudRate,
		ReconnectInterval: s.cfg.IMUReconnectInterval(),
		Watchdog:          s.cfg.IMUWatchdog(),
	},
		transport.WithClock(o.clock),
		transport.WithDispatcher(s.loop),
		transport.WithSerialPortFactory(o.serialFactory),
		transport.WithLineValidator(dec.ValidLine),
	)

	link.OnFrame(func(line []byte) {
		s.metrics.FrameReceived(LinkIMU)
		ev, err := dec.DecodeLine(line)
		if err != nil {
			s.metrics.DecodeFailed(LinkIMU, decoder.Reason(err))
			log.Debug().Err(err).Msgf("%s: dropping line %q", LinkIMU, line)
			return
		}
		s.reconciler.Apply(ev)
	})
	s.watchLink(link)
	return link
}

func (s *Service) handleRobotFrame(frame []byte) {
	s.metrics.FrameReceived(LinkRobot)
	d, err := decoder.DecodeFrame(frame)
	if err != nil {
		s.metrics.DecodeFailed(LinkRobot, decoder.Reason(err))
		log.Debug().Err(err).Msgf("%s: dropping frame", LinkRobot)
		return
	}
	if s.dropRobotRotation && d.Event.Kind() == models.KindRotation {
		return
	}
	s.queue.Enqueue(d.Event, d.Priority)
}

// drainQueue applies one read cycle's worth of queued events.
func (s *Service) drainQueue() {
	events := s.queue.Drain()
	if len(events) == 0 {
		return
	}
	s.metrics.QueueDrained(len(events))
	for _, ev := range events {
		s.reconciler.Apply(ev)
	}
}

// watchLink reports connection changes as metrics and link.status
// notifications. The last error is attached to the disconnect it caused.
func (s *Service) watchLink(link transport.Link) {
	name := link.Name()
	var lastErr error

	link.OnError(func(err error) {
		s.metrics.LinkError(name)
		lastErr = err
	})
	link.OnStateChange(func(state transport.ConnState) {
		s.metrics.SetLinkConnected(name, state == transport.Connected)
		params := models.LinkStatusParams{Link: name, State: state.String()}
		switch state {
		case transport.Disconnected:
			if lastErr != nil {
				params.Error = lastErr.Error()
			}
		case transport.Connected:
			lastErr = nil
		case transport.Connecting:
		}
		notifications.LinkStatus(s.notifications, params)
	})
}
