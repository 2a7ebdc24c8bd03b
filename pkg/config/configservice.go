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
	"strconv"
)

const (
	DefaultAPIPort   = 7480
	DefaultRateLimit = 20
)

type API struct {
	Port           *int     `toml:"port,omitempty" validate:"omitempty,gte=1,lte=65535"`
	Listen         string   `toml:"listen,omitempty" validate:"omitempty,hostname_port"`
	AllowedOrigins []string `toml:"allowed_origins,omitempty"`
	// RateLimit is the sustained requests per second allowed per client
	// IP. Zero uses the default.
	RateLimit int  `toml:"rate_limit,omitempty" validate:"gte=0"`
	Disabled  bool `toml:"disabled,omitempty"`
}

type MQTTPublisher struct {
	Enabled *bool    `toml:"enabled,omitempty"`
	Broker  string   `toml:"broker" validate:"required,hostname_port"`
	Topic   string   `toml:"topic" validate:"required"`
	Filter  []string `toml:"filter,omitempty,multiline" validate:"dive,notification"`
}

func (c *Instance) APIEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.vals.API.Disabled
}

func (c *Instance) APIPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiPortLocked()
}

// apiPortLocked returns the API port. Caller must hold mu (read or write).
func (c *Instance) apiPortLocked() int {
	if c.vals.API.Port == nil {
		return DefaultAPIPort
	}
	return *c.vals.API.Port
}

func (c *Instance) SetAPIPort(port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.API.Port = &port
}

func (c *Instance) APIListen() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.API.Listen == "" {
		return ":" + strconv.Itoa(c.apiPortLocked())
	}
	return c.vals.API.Listen
}

func (c *Instance) AllowedOrigins() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.API.AllowedOrigins
}

func (c *Instance) RateLimit() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.API.RateLimit == 0 {
		return DefaultRateLimit
	}
	return c.vals.API.RateLimit
}

func (c *Instance) GetMQTTPublishers() []MQTTPublisher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.MQTT
}

func (c *Instance) AddMQTTPublisher(p MQTTPublisher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.MQTT = append(c.vals.MQTT, p)
}
