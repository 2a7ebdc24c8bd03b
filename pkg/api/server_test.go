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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ZaparooProject/cellboard/pkg/models"
	"github.com/ZaparooProject/cellboard/pkg/service/broker"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	err   error
	snap  models.Snapshot
	chart models.ChartData
}

func (f *fakeSource) Snapshot(context.Context) (models.Snapshot, error) {
	return f.snap, f.err
}

func (f *fakeSource) Chart(context.Context) (models.ChartData, error) {
	return f.chart, f.err
}

func newBroker(t *testing.T) (*broker.Broker, chan models.Notification) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	source := make(chan models.Notification, 16)
	b := broker.NewBroker(ctx, source)
	b.Start()
	return b, source
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	req.RemoteAddr = "192.0.2.1:4000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_State(t *testing.T) {
	t.Parallel()

	angle := 12.5
	src := &fakeSource{snap: models.Snapshot{
		Angle:     &angle,
		State:     models.StateWarning,
		LiveStats: models.LiveStats{"cycleCount": 3},
		Durations: models.StateBucketDurations{NormalSeconds: 10, WarningSeconds: 2},
	}}
	b, _ := newBroker(t)
	s := NewServer(Options{}, src, b)

	w := get(t, s.Handler(), "/api/state")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "warning", got["state"])
	assert.InDelta(t, 12.5, got["angle"], 1e-9)
	assert.Equal(t, map[string]any{"cycleCount": float64(3)}, got["liveStats"])
}

func TestServer_Chart(t *testing.T) {
	t.Parallel()

	src := &fakeSource{chart: models.ChartData{
		Units: models.UnitsSeconds,
		Bars:  []models.Bar{{Label: "Max. Speed", Color: "#00FF00", Value: 30}},
	}}
	b, _ := newBroker(t)
	s := NewServer(Options{}, src, b)

	w := get(t, s.Handler(), "/api/chart")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Max. Speed"`)
	assert.Contains(t, w.Body.String(), `"units":"sec"`)
}

func TestServer_SourceError(t *testing.T) {
	t.Parallel()

	b, _ := newBroker(t)
	s := NewServer(Options{}, &fakeSource{err: errors.New("loop stopped")}, b)

	w := get(t, s.Handler(), "/api/state")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	b, _ := newBroker(t)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "cellboard_frames_received_total 1\n")
	})

	s := NewServer(Options{Metrics: metrics}, &fakeSource{}, b)
	w := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cellboard_frames_received_total")

	s = NewServer(Options{}, &fakeSource{}, b)
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/metrics").Code)
}

func TestServer_RateLimited(t *testing.T) {
	t.Parallel()

	b, _ := newBroker(t)
	s := NewServer(Options{RateLimit: 1}, &fakeSource{}, b)
	h := s.Handler()

	for range s.limiter.Burst() {
		require.Equal(t, http.StatusOK, get(t, h, "/api/state").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(t, h, "/api/state").Code)
}

func TestServer_CORS(t *testing.T) {
	t.Parallel()

	b, _ := newBroker(t)
	s := NewServer(Options{AllowedOrigins: []string{"http://kiosk.local"}}, &fakeSource{}, b)

	req := httptest.NewRequest(http.MethodGet, "/api/state", http.NoBody)
	req.Header.Set("Origin", "http://kiosk.local")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "http://kiosk.local", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/state", http.NoBody)
	req.Header.Set("Origin", "http://elsewhere")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func serve(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(ShutdownTimeout + time.Second):
			t.Error("server did not shut down")
		}
	})
	return "ws://" + ln.Addr().String() + "/api/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) notificationMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg notificationMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestServer_WebsocketReplayAndBroadcast(t *testing.T) {
	t.Parallel()

	b, source := newBroker(t)
	s := NewServer(Options{}, &fakeSource{}, b)
	url := serve(t, s)

	source <- models.Notification{
		Method: models.NotificationStateChanged,
		Params: []byte(`{"state":"error","widget":"ring","surface":0}`),
	}
	require.Eventually(t, func() bool { return len(b.Latest()) == 1 }, time.Second, time.Millisecond)

	conn := dial(t, url)
	replay := readMessage(t, conn)
	assert.Equal(t, "2.0", replay.JSONRPC)
	assert.Equal(t, models.NotificationStateChanged, replay.Method)
	assert.JSONEq(t, `{"state":"error","widget":"ring","surface":0}`, string(replay.Params))

	source <- models.Notification{
		Method: models.NotificationRotationChanged,
		Params: []byte(`{"angle":45,"widget":"ring","surface":0}`),
	}
	for {
		msg := readMessage(t, conn)
		if msg.Method == models.NotificationRotationChanged {
			assert.JSONEq(t, `{"angle":45,"widget":"ring","surface":0}`, string(msg.Params))
			break
		}
		assert.Equal(t, models.NotificationStateChanged, msg.Method)
	}
}

func TestServer_WebsocketPing(t *testing.T) {
	t.Parallel()

	b, _ := newBroker(t)
	url := serve(t, NewServer(Options{}, &fakeSource{}, b))

	conn := dial(t, url)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(data))
}
