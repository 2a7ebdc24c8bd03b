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

// Package broker broadcasts notifications to in-process consumers without
// letting a slow consumer hold up the display.
package broker

import (
	"context"
	"slices"

	"github.com/ZaparooProject/cellboard/pkg/helpers/syncutil"
	"github.com/ZaparooProject/cellboard/pkg/models"
	"github.com/rs/zerolog/log"
)

type subscriber struct {
	ch      chan models.Notification
	methods []string
}

func (s subscriber) wants(method string) bool {
	return len(s.methods) == 0 || slices.Contains(s.methods, method)
}

// Broker reads notifications from a source channel and copies each one to
// every interested subscriber. The last notification of each method is
// kept so late subscribers can catch up.
type Broker struct {
	ctx         context.Context
	source      <-chan models.Notification
	subscribers map[int]subscriber
	last        map[string]models.Notification
	onDrop      func(method string)
	done        chan struct{}
	mu          syncutil.RWMutex
	nextID      int
}

type Option func(*Broker)

// WithDropHook is called for every notification a full subscriber misses.
func WithDropHook(fn func(method string)) Option {
	return func(b *Broker) {
		b.onDrop = fn
	}
}

func NewBroker(ctx context.Context, source <-chan models.Notification, opts ...Option) *Broker {
	b := &Broker{
		ctx:         ctx,
		source:      source,
		subscribers: make(map[int]subscriber),
		last:        make(map[string]models.Notification),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start runs the broadcast loop until the source closes or the context is
// cancelled, then closes every subscriber channel.
func (b *Broker) Start() {
	go func() {
		defer close(b.done)
		for {
			select {
			case notif, ok := <-b.source:
				if !ok {
					log.Debug().Msg("broker: source channel closed")
					b.closeAllSubscribers()
					return
				}
				b.broadcast(notif)
			case <-b.ctx.Done():
				log.Debug().Msg("broker: context cancelled, shutting down")
				b.closeAllSubscribers()
				return
			}
		}
	}()
}

// Done is closed once the broadcast loop has exited.
func (b *Broker) Done() <-chan struct{} {
	return b.done
}

func (b *Broker) broadcast(notif models.Notification) {
	b.mu.Lock()
	b.last[notif.Method] = notif
	b.mu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		if !sub.wants(notif.Method) {
			continue
		}
		select {
		case sub.ch <- notif:
		default:
			log.Warn().
				Int("subscriber_id", id).
				Str("method", notif.Method).
				Msg("subscriber channel full, dropping notification")
			if b.onDrop != nil {
				b.onDrop(notif.Method)
			}
		}
	}
}

// Subscribe registers a consumer. With no methods given it receives every
// notification.
func (b *Broker) Subscribe(bufferSize int, methods ...string) (notifChan <-chan models.Notification, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id = b.nextID
	b.nextID++

	ch := make(chan models.Notification, bufferSize)
	b.subscribers[id] = subscriber{ch: ch, methods: slices.Clone(methods)}

	log.Debug().
		Int("subscriber_id", id).
		Int("buffer_size", bufferSize).
		Strs("methods", methods).
		Msg("new subscriber registered")

	notifChan = ch
	return notifChan, id
}

// Unsubscribe removes a subscription and closes its channel. Unknown IDs
// are ignored.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
		log.Debug().Int("subscriber_id", id).Msg("subscriber unsubscribed")
	}
}

// Latest returns the most recent notification of each method in the
// order of models.AllNotifications.
func (b *Broker) Latest() []models.Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.Notification, 0, len(b.last))
	for _, method := range models.AllNotifications {
		if n, ok := b.last[method]; ok {
			out = append(out, n)
		}
	}
	return out
}

func (b *Broker) Stop() {
	b.closeAllSubscribers()
}

func (b *Broker) closeAllSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		close(sub.ch)
		log.Debug().Int("subscriber_id", id).Msg("closed subscriber channel on shutdown")
	}
	b.subscribers = make(map[int]subscriber)
}
