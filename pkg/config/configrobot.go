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

package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ZaparooProject/cellboard/pkg/models"
)

const (
	TransportTCP  = "tcp"
	TransportUART = "uart"
)

// Robot is the controller link. Over TCP it carries newline delimited
// JSON; over UART the same JSON arrives with carriage return delimiters.
type Robot struct {
	Transport     string `toml:"transport" validate:"oneof=tcp uart"`
	Host          string `toml:"host" validate:"required_if=Transport tcp"`
	Delimiter     string `toml:"delimiter,omitempty" validate:"omitempty,len=1,ascii"`
	UARTPort      string `toml:"uart_port,omitempty" validate:"required_if=Transport uart"`
	Port          int    `toml:"port" validate:"required_if=Transport tcp,gte=0,lte=65535"`
	BaudRate      int    `toml:"baud_rate,omitempty" validate:"gte=0"`
	ReconnectMS   int    `toml:"reconnect_ms" validate:"gte=0"`
	MaxFrameBytes int    `toml:"max_frame_bytes,omitempty" validate:"gte=0"`
}

// IMU is the rotation sensor on its own serial port. StateCodes maps
// the numeric codes of "s:" lines to state names, replacing the built-in
// table when set.
type IMU struct {
	StateCodes      map[string]string `toml:"state_codes,omitempty" validate:"dive,keys,numeric,endkeys,state"`
	Port            string            `toml:"port" validate:"required_if=Enabled true"`
	BaudRate        int               `toml:"baud_rate" validate:"gte=0"`
	ReconnectMS     int               `toml:"reconnect_ms" validate:"gte=0"`
	WatchdogMS      int               `toml:"watchdog_ms" validate:"gte=0"`
	AxisSign        int               `toml:"axis_sign" validate:"oneof=-1 1"`
	Offset          float64           `toml:"offset"`
	Enabled         bool              `toml:"enabled"`
	RotationFromIMU bool              `toml:"rotation_from_imu"`
}

func (c *Instance) Robot() Robot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Robot
}

func (c *Instance) SetRobotAddress(host string, port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Robot.Host = host
	c.vals.Robot.Port = port
}

func (c *Instance) RobotReconnectInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.Robot.ReconnectMS) * time.Millisecond
}

// RobotDelimiter returns the frame delimiter for the configured robot
// transport.
func (c *Instance) RobotDelimiter() byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Robot.Delimiter != "" {
		return c.vals.Robot.Delimiter[0]
	}
	if c.vals.Robot.Transport == TransportUART {
		return '\r'
	}
	return '\n'
}

func (c *Instance) IMU() IMU {
	c.mu.RLock()
	defer c.mu.RUnlock()
	imu := c.vals.IMU
	imu.StateCodes = nil
	return imu
}

func (c *Instance) IMUEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.IMU.Enabled
}

// RotationFromIMU reports whether the IMU is the only rotation source.
// Robot rotation messages are dropped when it is.
func (c *Instance) RotationFromIMU() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.IMU.Enabled && c.vals.IMU.RotationFromIMU
}

func (c *Instance) IMUReconnectInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.IMU.ReconnectMS) * time.Millisecond
}

func (c *Instance) IMUWatchdog() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.IMU.WatchdogMS) * time.Millisecond
}

// IMUStateCodes returns the configured code table, or nil when the
// built-in table should be used.
func (c *Instance) IMUStateCodes() (map[int]models.State, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.vals.IMU.StateCodes) == 0 {
		return nil, nil
	}

	codes := make(map[int]models.State, len(c.vals.IMU.StateCodes))
	for k, v := range c.vals.IMU.StateCodes {
		code, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("invalid state code %q: %w", k, err)
		}
		s, err := models.ParseState(v)
		if err != nil {
			return nil, fmt.Errorf("state code %d: %w", code, err)
		}
		codes[code] = s
	}
	return codes, nil
}
