// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotbot-org/botgate/pkg/hdlc"
	"github.com/dotbot-org/botgate/pkg/lighthouse"
	"github.com/dotbot-org/botgate/pkg/protocol"
	"github.com/dotbot-org/botgate/pkg/registry"
)

const (
	botAddr   uint64 = 0x9903EF26257FEB31
	testSwarm uint16 = 0x0042
)

// Known states on the two channel-A sweep sequences; any state on a
// sequence reverse-counts to a checkpoint, so captures built from these
// always decode.
const (
	sweepState0 uint64 = 0b10101010110011101
	sweepState1 uint64 = 0b11010000110111110
)

func start(t *testing.T, cfg Config) (*Controller, *MockConnection) {
	t.Helper()
	conn := NewMockConnection()
	c := New(cfg, conn, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("controller did not stop")
		}
	})
	return c, conn
}

func frameFor(src uint64, app protocol.Application, payload protocol.Payload) []byte {
	pkt := protocol.NewPacket(protocol.AddressGatewayDefault, src, testSwarm, app, payload)
	return hdlc.Encode(pkt.Encode())
}

func decodeWrite(t *testing.T, frame []byte) protocol.Packet {
	t.Helper()
	raw, err := hdlc.Decode(frame)
	require.NoError(t, err)
	pkt, err := protocol.Decode(raw)
	require.NoError(t, err)
	return pkt
}

func validSweep() protocol.Lh2RawData {
	return protocol.Lh2RawData{
		Locations: [2]protocol.Lh2RawLocation{
			{Bits: sweepState0 << 47, PolynomialIndex: 0, Offset: 0},
			{Bits: sweepState1 << 47, PolynomialIndex: 1, Offset: 0},
		},
	}
}

func TestController_VersionHandshakeFirst(t *testing.T) {
	_, conn := start(t, Config{})

	require.Eventually(t, func() bool {
		return len(conn.Writes()) >= 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, []byte{protocol.Version}, conn.Writes()[0])
}

func TestController_AdvertisementCreatesBot(t *testing.T) {
	c, conn := start(t, Config{})

	conn.QueueRead(frameFor(botAddr, protocol.ApplicationDotBot, protocol.Advertisement{}))

	require.Eventually(t, func() bool {
		_, ok := c.Registry().Get(botAddr)
		return ok
	}, time.Second, time.Millisecond)

	b, _ := c.Registry().Get(botAddr)
	assert.Equal(t, registry.StatusAlive, b.Status)
	assert.Equal(t, protocol.ApplicationDotBot, b.Application)
	assert.EqualValues(t, 1, c.Stats().Snapshot().Packets)
}

func TestController_Lh2LocationUpdatesPosition(t *testing.T) {
	c, conn := start(t, Config{})

	conn.QueueRead(frameFor(botAddr, protocol.ApplicationDotBot, protocol.Lh2Location{
		X: 500000, Y: 250000, Z: 0,
	}))

	require.Eventually(t, func() bool {
		b, ok := c.Registry().Get(botAddr)
		return ok && b.Position != nil
	}, time.Second, time.Millisecond)

	b, _ := c.Registry().Get(botAddr)
	assert.Equal(t, registry.PositionLH2, b.Position.Kind)
	assert.InDelta(t, 0.5, b.Position.X, 1e-9)
	assert.InDelta(t, 0.25, b.Position.Y, 1e-9)
}

func TestController_SailBotData(t *testing.T) {
	c, conn := start(t, Config{})

	conn.QueueRead(frameFor(botAddr, protocol.ApplicationSailBot, protocol.SailBotData{
		Direction: 270,
		Latitude:  48856600,
		Longitude: 2352200,
	}))

	require.Eventually(t, func() bool {
		b, ok := c.Registry().Get(botAddr)
		return ok && b.Position != nil && b.Direction != nil
	}, time.Second, time.Millisecond)

	b, _ := c.Registry().Get(botAddr)
	assert.Equal(t, int16(270), *b.Direction)
	assert.Equal(t, registry.PositionGPS, b.Position.Kind)
	assert.InDelta(t, 48.8566, b.Position.X, 1e-9)
	assert.InDelta(t, 2.3522, b.Position.Y, 1e-9)
}

func TestController_CorruptFrameCountedAndSkipped(t *testing.T) {
	c, conn := start(t, Config{})

	bad := frameFor(botAddr, protocol.ApplicationDotBot, protocol.Advertisement{})
	bad[3] ^= 0x01
	conn.QueueRead(bad)
	conn.QueueRead(frameFor(botAddr, protocol.ApplicationDotBot, protocol.Advertisement{}))

	// The good frame behind the corrupt one still lands.
	require.Eventually(t, func() bool {
		_, ok := c.Registry().Get(botAddr)
		return ok
	}, time.Second, time.Millisecond)
	assert.EqualValues(t, 1, c.Stats().Snapshot().FCSErrors)
}

func TestController_VersionMismatchDropped(t *testing.T) {
	c, conn := start(t, Config{})

	pkt := protocol.NewPacket(protocol.AddressGatewayDefault, botAddr, testSwarm,
		protocol.ApplicationDotBot, protocol.Advertisement{})
	wire := pkt.Encode()
	wire[19] = protocol.Version + 1
	conn.QueueRead(hdlc.Encode(wire))

	require.Eventually(t, func() bool {
		return c.Stats().Snapshot().VersionMismatch == 1
	}, time.Second, time.Millisecond)
	_, ok := c.Registry().Get(botAddr)
	assert.False(t, ok, "mismatched packet must not create a bot")
}

func TestController_MoveRawCommand(t *testing.T) {
	c, conn := start(t, Config{Address: 0x1234, SwarmID: testSwarm})

	require.NoError(t, c.MoveRaw(botAddr, 0, 80, 0, -80))

	require.Eventually(t, func() bool {
		return len(conn.Writes()) >= 2 // handshake byte, then the command
	}, time.Second, time.Millisecond)

	pkt := decodeWrite(t, conn.Writes()[1])
	assert.Equal(t, botAddr, pkt.Header.Destination)
	assert.Equal(t, uint64(0x1234), pkt.Header.Source)
	assert.Equal(t, testSwarm, pkt.Header.SwarmID)
	cmd, ok := pkt.Payload.(protocol.CmdMoveRaw)
	require.True(t, ok)
	assert.Equal(t, int8(80), cmd.LeftY)
	assert.Equal(t, int8(-80), cmd.RightY)
}

func TestController_MoveRawRangeRejected(t *testing.T) {
	c := New(Config{}, NewMockConnection(), nil)
	assert.ErrorIs(t, c.MoveRaw(botAddr, 0, 150, 0, 0), protocol.ErrMoveValueOutOfRange)
}

func TestController_QueueFullDropsCommand(t *testing.T) {
	// No Run, so nothing drains the outbound queue.
	c := New(Config{QueueSize: 2}, NewMockConnection(), nil)

	require.NoError(t, c.RGBLed(botAddr, 1, 0, 0))
	require.NoError(t, c.RGBLed(botAddr, 0, 1, 0))
	assert.ErrorIs(t, c.RGBLed(botAddr, 0, 0, 1), ErrQueueFull)
	assert.EqualValues(t, 1, c.Stats().Snapshot().QueueDrops)
}

func TestController_SweepFeedsCalibrationSampling(t *testing.T) {
	c, conn := start(t, Config{})

	c.StartCalibration()
	assert.Equal(t, lighthouse.StateRunning, c.CalibrationState())

	conn.QueueRead(frameFor(botAddr, protocol.ApplicationDotBot, validSweep()))
	require.Eventually(t, func() bool {
		return c.Stats().Snapshot().Sweeps == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, c.AddCalibrationPoint(0))
	// The sample is consumed; a second click needs a fresh sweep.
	assert.ErrorIs(t, c.AddCalibrationPoint(1), ErrNoSweep)

	// No frozen transform yet, so the sweep produced no position.
	b, _ := c.Registry().Get(botAddr)
	assert.Nil(t, b.Position)
}

func TestController_DotBotDataDirectionSurvivesSweepError(t *testing.T) {
	c, conn := start(t, Config{})

	// All-zero captures cannot be reverse-counted but the heading and the
	// sighting still count.
	conn.QueueRead(frameFor(botAddr, protocol.ApplicationDotBot, protocol.DotBotData{Direction: 45}))

	require.Eventually(t, func() bool {
		b, ok := c.Registry().Get(botAddr)
		return ok && b.Direction != nil
	}, time.Second, time.Millisecond)

	b, _ := c.Registry().Get(botAddr)
	assert.Equal(t, int16(45), *b.Direction)
	assert.EqualValues(t, 1, c.Stats().Snapshot().SweepErrors)
}

func TestController_ClearPositionHistory(t *testing.T) {
	c, conn := start(t, Config{})

	conn.QueueRead(frameFor(botAddr, protocol.ApplicationDotBot, protocol.Advertisement{}))
	require.Eventually(t, func() bool {
		_, ok := c.Registry().Get(botAddr)
		return ok
	}, time.Second, time.Millisecond)

	require.NoError(t, c.ClearPositionHistory(botAddr))

	require.Eventually(t, func() bool {
		return len(conn.Writes()) >= 2
	}, time.Second, time.Millisecond)
	pkt := decodeWrite(t, conn.Writes()[1])
	assert.Equal(t, protocol.PayloadTypePositionHistoryClear, pkt.Payload.PayloadType())
}

func TestController_SetWaypointsMirrorsRegistry(t *testing.T) {
	c, conn := start(t, Config{})

	conn.QueueRead(frameFor(botAddr, protocol.ApplicationDotBot, protocol.Advertisement{}))
	require.Eventually(t, func() bool {
		_, ok := c.Registry().Get(botAddr)
		return ok
	}, time.Second, time.Millisecond)

	route := []registry.Position{
		{Kind: registry.PositionLH2, X: 0.2, Y: 0.2},
		{Kind: registry.PositionLH2, X: 0.8, Y: 0.8},
	}
	require.NoError(t, c.SetWaypoints(botAddr, route, 10))

	b, _ := c.Registry().Get(botAddr)
	require.Len(t, b.Waypoints, 2)
	assert.Equal(t, uint8(10), b.WaypointThreshold)

	require.Eventually(t, func() bool {
		return len(conn.Writes()) >= 2
	}, time.Second, time.Millisecond)
	pkt := decodeWrite(t, conn.Writes()[1])
	wp, ok := pkt.Payload.(protocol.Lh2Waypoints)
	require.True(t, ok)
	require.Len(t, wp.Waypoints, 2)
	assert.Equal(t, uint32(200000), wp.Waypoints[0].X)
}

func TestHub_FanOutAndCancel(t *testing.T) {
	hub := NewHub()

	fast, cancelFast := hub.Subscribe(4)
	slow, cancelSlow := hub.Subscribe(1)
	defer cancelFast()

	for i := 0; i < 3; i++ {
		hub.Publish(Event{Kind: EventCalibration, CalibrationState: lighthouse.StateRunning})
	}

	// Fast subscriber sees everything, the full slow one dropped overflow.
	assert.Len(t, fast, 3)
	assert.Len(t, slow, 1)

	cancelSlow()
	cancelSlow() // idempotent
	for range slow {
	}

	// Publishing after a cancel must not panic or block.
	hub.Publish(Event{Kind: EventCalibration})
	require.Eventually(t, func() bool { return len(fast) == 4 }, time.Second, time.Millisecond)
}
