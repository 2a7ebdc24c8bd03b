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
	"context"
	"net"
	"testing"
	"time"

	"github.com/ZaparooProject/cellboard/pkg/config"
	"github.com/ZaparooProject/cellboard/pkg/models"
	"github.com/ZaparooProject/cellboard/pkg/service/loop"
	"github.com/ZaparooProject/cellboard/pkg/transport/testutils"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const waitFor = 2 * time.Second

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	svc    *Service
	dialer *testutils.PipeDialer
	ports  *testutils.MockSerialFactory
	clock  *clockwork.FakeClock
}

func testValues() config.Values {
	vals := config.BaseDefaults
	vals.Robot.Host = "127.0.0.1"
	vals.IMU.Enabled = false
	vals.MQTT = nil
	return vals
}

func newConfig(t *testing.T, vals config.Values) *config.Instance {
	t.Helper()
	cfg, err := config.NewConfig(t.TempDir(), vals)
	require.NoError(t, err)
	return cfg
}

func start(t *testing.T, vals config.Values, ports ...*testutils.MockSerialPort) *harness {
	t.Helper()
	h := &harness{
		dialer: testutils.NewPipeDialer(),
		ports:  testutils.NewMockSerialFactory(ports...),
		clock:  clockwork.NewFakeClock(),
	}

	svc, err := Start(newConfig(t, vals),
		WithClock(h.clock),
		WithDialer(h.dialer),
		WithSerialPortFactory(h.ports.Open),
	)
	require.NoError(t, err)
	h.svc = svc
	t.Cleanup(func() {
		assert.NoError(t, svc.Stop())
	})
	return h
}

// accept returns the controller side of the robot connection.
func (h *harness) accept(t *testing.T) net.Conn {
	t.Helper()
	select {
	case conn := <-h.dialer.Accepted:
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	case <-time.After(waitFor):
		t.Fatal("robot link never dialed")
		return nil
	}
}

func (h *harness) send(t *testing.T, conn net.Conn, frames string) {
	t.Helper()
	require.NoError(t, conn.SetWriteDeadline(time.Now().Add(waitFor)))
	_, err := conn.Write([]byte(frames))
	require.NoError(t, err)
}

func (h *harness) snapshot(t *testing.T) models.Snapshot {
	t.Helper()
	snap, err := h.svc.Snapshot(context.Background())
	require.NoError(t, err)
	return snap
}

func latest(svc *Service, method string) (models.Notification, bool) {
	for _, n := range svc.Broker().Latest() {
		if n.Method == method {
			return n, true
		}
	}
	return models.Notification{}, false
}

func TestStart_InitialState(t *testing.T) {
	t.Parallel()

	vals := testValues()
	vals.Display.InitialState = "idle"
	h := start(t, vals)

	snap := h.snapshot(t)
	assert.Equal(t, models.StateIdle, snap.State)
	assert.Nil(t, snap.Angle)

	require.Eventually(t, func() bool {
		_, ok := latest(h.svc, models.NotificationStateChanged)
		return ok
	}, waitFor, 10*time.Millisecond)
}

func TestStart_StreamFramesReachSnapshot(t *testing.T) {
	t.Parallel()

	h := start(t, testValues())
	conn := h.accept(t)

	h.send(t, conn,
		`{"type":"state","state":"warning"}`+"\n"+
			`{"type":"liveStats","currentSpeed":5,"totalBoxes":12}`+"\n"+
			`{"type":"rotation","angle":42.5}`+"\n")

	require.Eventually(t, func() bool {
		snap := h.snapshot(t)
		return snap.State == models.StateWarning &&
			snap.Angle != nil && *snap.Angle == 42.5 &&
			snap.LiveStats["currentSpeed"] == 5
	}, waitFor, 10*time.Millisecond)

	assert.Equal(t, 12, h.snapshot(t).LiveStats["totalBoxes"])
}

func TestStart_MalformedFramesDropped(t *testing.T) {
	t.Parallel()

	h := start(t, testValues())
	conn := h.accept(t)

	h.send(t, conn, "not json\n"+
		`{"type":"state","state":"exploded"}`+"\n"+
		`{"type":"state","state":"error"}`+"\n")

	require.Eventually(t, func() bool {
		return h.snapshot(t).State == models.StateError
	}, waitFor, 10*time.Millisecond)
}

func TestStart_LinkStatus(t *testing.T) {
	t.Parallel()

	h := start(t, testValues())
	h.accept(t)

	require.Eventually(t, func() bool {
		n, ok := latest(h.svc, models.NotificationLinkStatus)
		return ok && string(n.Params) == `{"link":"robot","state":"connected"}`
	}, waitFor, 10*time.Millisecond)
	assert.Equal(t, map[string]string{LinkRobot: "connected"}, h.svc.LinkStates())
}

func TestStart_LinkErrorReported(t *testing.T) {
	t.Parallel()

	h := start(t, testValues())
	conn := h.accept(t)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		n, ok := latest(h.svc, models.NotificationLinkStatus)
		return ok && string(n.Params) ==
			`{"link":"robot","state":"disconnected","error":"connection lost: closed by peer"}`
	}, waitFor, 10*time.Millisecond)
}

func TestStart_TickAccruesToStateBucket(t *testing.T) {
	t.Parallel()

	vals := testValues()
	vals.Display.ScreenIndices = []int{0, 1}
	h := start(t, vals)
	conn := h.accept(t)

	h.clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		return h.snapshot(t).Durations.NormalSeconds == 1
	}, waitFor, 10*time.Millisecond)

	h.send(t, conn, `{"type":"state","state":"stopped"}`+"\n")
	require.Eventually(t, func() bool {
		return h.snapshot(t).State == models.StateStopped
	}, waitFor, 10*time.Millisecond)

	h.clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		return h.snapshot(t).Durations.ErrorSeconds == 1
	}, waitFor, 10*time.Millisecond)

	chart, err := h.svc.Chart(context.Background())
	require.NoError(t, err)
	require.Len(t, chart.Bars, 3)
	assert.InDelta(t, 1.0, chart.Bars[0].Value, 0)
	assert.InDelta(t, 1.0, chart.Bars[2].Value, 0)

	_, ok := latest(h.svc, models.NotificationChartTick)
	assert.True(t, ok, "bar chart surface receives chart ticks")
}

func TestStart_IMURotation(t *testing.T) {
	t.Parallel()

	port := testutils.NewMockSerialPort()
	vals := testValues()
	vals.IMU.Enabled = true
	vals.IMU.Port = "/dev/ttyIMU"
	vals.IMU.RotationFromIMU = true
	h := start(t, vals, port)
	conn := h.accept(t)

	// robot rotation is ignored while the IMU owns it
	h.send(t, conn, `{"type":"rotation","angle":90}`+"\n"+`{"type":"state","state":"warning"}`+"\n")
	require.Eventually(t, func() bool {
		return h.snapshot(t).State == models.StateWarning
	}, waitFor, 10*time.Millisecond)
	assert.Nil(t, h.snapshot(t).Angle)

	port.Feed("r:10\r\n")
	require.Eventually(t, func() bool {
		snap := h.snapshot(t)
		return snap.Angle != nil
	}, waitFor, 10*time.Millisecond)
	assert.InDelta(t, -11.7, *h.snapshot(t).Angle, 1e-9)

	port.Feed("s:3\n")
	require.Eventually(t, func() bool {
		return h.snapshot(t).State == models.StateStopped
	}, waitFor, 10*time.Millisecond)
}

func TestStart_UARTRobot(t *testing.T) {
	t.Parallel()

	port := testutils.NewMockSerialPort()
	vals := testValues()
	vals.Robot.Transport = config.TransportUART
	vals.Robot.UARTPort = "/dev/ttyRobot"
	h := start(t, vals, port)

	port.Feed(`{"type":"state","state":"reduced_speed"}` + "\r")
	require.Eventually(t, func() bool {
		return h.snapshot(t).State == models.StateReducedSpeed
	}, waitFor, 10*time.Millisecond)
	assert.Zero(t, h.dialer.Dials())
	assert.Equal(t, 115200, h.ports.LastMode().BaudRate)
}

func TestStart_InvalidLayout(t *testing.T) {
	t.Parallel()

	vals := testValues()
	vals.Display.Layouts = map[string][]string{"1": {"hologram"}}

	_, err := Start(newConfig(t, vals), WithClock(clockwork.NewFakeClock()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid display layouts")
}

func TestStart_DisabledPublisherSkipped(t *testing.T) {
	t.Parallel()

	disabled := false
	vals := testValues()
	vals.MQTT = []config.MQTTPublisher{{
		Enabled: &disabled,
		Broker:  "localhost:1883",
		Topic:   "cellboard",
	}}
	h := start(t, vals)
	assert.Empty(t, h.svc.publishers)
}

func TestStop(t *testing.T) {
	t.Parallel()

	h := start(t, testValues())
	h.accept(t)

	require.NoError(t, h.svc.Stop())
	require.NoError(t, h.svc.Stop())

	select {
	case <-h.svc.Done():
	default:
		t.Fatal("done not closed after stop")
	}

	_, err := h.svc.Snapshot(context.Background())
	require.ErrorIs(t, err, loop.ErrStopped)
	assert.Equal(t, map[string]string{LinkRobot: "disconnected"}, h.svc.LinkStates())
}
