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

package publishers

import (
	"testing"
	"time"

	"github.com/ZaparooProject/cellboard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMQTTPublisher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		topic     string
		wantTopic string
		filter    []string
	}{
		{
			name:      "plain topic",
			topic:     "cell/status",
			wantTopic: "cell/status/state.changed",
		},
		{
			name:      "trailing slash",
			topic:     "cell/status/",
			wantTopic: "cell/status/state.changed",
		},
		{
			name:      "with filter",
			topic:     "line4",
			wantTopic: "line4/state.changed",
			filter:    []string{models.NotificationStateChanged},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := NewMQTTPublisher("localhost:1883", tt.topic, tt.filter)
			assert.Equal(t, tt.wantTopic, p.Topic(models.NotificationStateChanged))
			assert.Equal(t, tt.filter, p.filter)
			assert.NotNil(t, p.stopCh)
		})
	}
}

func TestMatchesFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		filter []string
		want   bool
	}{
		{name: "nil filter matches all", method: models.NotificationChartTick, want: true},
		{name: "empty filter matches all", filter: []string{}, method: models.NotificationLiveStats, want: true},
		{
			name:   "method in filter",
			filter: []string{models.NotificationStateChanged, models.NotificationGlobalStats},
			method: models.NotificationGlobalStats,
			want:   true,
		},
		{
			name:   "method not in filter",
			filter: []string{models.NotificationStateChanged},
			method: models.NotificationRotationChanged,
			want:   false,
		},
		{
			name:   "case sensitive",
			filter: []string{models.NotificationStateChanged},
			method: "State.Changed",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &MQTTPublisher{filter: tt.filter}
			assert.Equal(t, tt.want, p.matchesFilter(tt.method))
		})
	}
}

func TestStart_PublishesPerMethodTopic(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	p := NewMQTTPublisher("localhost:1883", "cell", nil).WithClientFactory(client.factory())

	notifs := make(chan models.Notification, 10)
	require.NoError(t, p.Start(notifs))
	t.Cleanup(p.Stop)

	notifs <- models.Notification{
		Method: models.NotificationStateChanged,
		Params: []byte(`{"state":"error","widget":"ring","surface":0}`),
	}
	notifs <- models.Notification{Method: models.NotificationRotationChanged}

	require.Eventually(t, func() bool { return len(client.messages()) == 2 }, time.Second, time.Millisecond)

	msgs := client.messages()
	assert.Equal(t, "cell/state.changed", msgs[0].topic)
	assert.True(t, msgs[0].retained)
	assert.JSONEq(t, `{"state":"error","widget":"ring","surface":0}`, string(msgs[0].payload.([]byte)))

	assert.Equal(t, "cell/rotation.changed", msgs[1].topic)
	assert.False(t, msgs[1].retained)
	assert.Equal(t, "{}", string(msgs[1].payload.([]byte)))

	require.NotNil(t, client.opts)
	assert.Equal(t, "cell/link.status", client.opts.WillTopic)
	assert.True(t, client.opts.WillRetained)
	assert.Contains(t, client.opts.ClientID, "cellboard-")
}

func TestStart_ConnectError(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	client.connectError = assert.AnError
	p := NewMQTTPublisher("localhost:1883", "cell", nil).WithClientFactory(client.factory())

	err := p.Start(make(chan models.Notification))
	require.ErrorIs(t, err, assert.AnError)
}

func TestPublishNotifications_Filtered(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	p := NewMQTTPublisher("localhost:1883", "cell", []string{models.NotificationStateChanged}).
		WithClientFactory(client.factory())

	notifs := make(chan models.Notification, 10)
	require.NoError(t, p.Start(notifs))

	notifs <- models.Notification{Method: models.NotificationChartTick, Params: []byte(`{}`)}
	notifs <- models.Notification{Method: models.NotificationStateChanged, Params: []byte(`{}`)}

	require.Eventually(t, func() bool { return len(client.messages()) == 1 }, time.Second, time.Millisecond)
	p.Stop()

	assert.Equal(t, "cell/state.changed", client.messages()[0].topic)
}

func TestPublishNotifications_PublishErrorKeepsGoing(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	client.publishError = assert.AnError
	p := NewMQTTPublisher("localhost:1883", "cell", nil).WithClientFactory(client.factory())

	notifs := make(chan models.Notification, 10)
	require.NoError(t, p.Start(notifs))

	notifs <- models.Notification{Method: models.NotificationLiveStats}
	notifs <- models.Notification{Method: models.NotificationLiveStats}

	require.Eventually(t, func() bool { return len(notifs) == 0 }, time.Second, time.Millisecond)
	p.Stop()
	assert.Empty(t, client.messages())
}

func TestPublishNotifications_ChannelClosed(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	p := NewMQTTPublisher("localhost:1883", "cell", nil).WithClientFactory(client.factory())

	notifs := make(chan models.Notification)
	require.NoError(t, p.Start(notifs))
	close(notifs)

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked after channel closed")
	}
	assert.Equal(t, 1, client.disconnectCall)
}

func TestStop_Twice(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	p := NewMQTTPublisher("localhost:1883", "cell", nil).WithClientFactory(client.factory())
	require.NoError(t, p.Start(make(chan models.Notification)))

	p.Stop()
	p.Stop()

	assert.False(t, client.IsConnected())
	_, ok := <-p.stopCh
	assert.False(t, ok)
}

func TestStop_NeverStarted(t *testing.T) {
	t.Parallel()

	p := NewMQTTPublisher("localhost:1883", "cell", nil)
	p.Stop()

	_, ok := <-p.stopCh
	assert.False(t, ok)
}
