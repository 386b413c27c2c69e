// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotbot-org/botgate/pkg/protocol"
)

const testAddr uint64 = 0x9903EF26257FEB31

func lh2(x, y float64) Position {
	return Position{Kind: PositionLH2, X: x, Y: y}
}

func gps(lat, lon float64) Position {
	return Position{Kind: PositionGPS, X: lat, Y: lon}
}

type eventSink struct {
	events []Event
}

func (s *eventSink) record(e Event) {
	s.events = append(s.events, e)
}

func (s *eventSink) ofType(t EventType) []Event {
	var out []Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func TestRegistry_TouchCreatesBot(t *testing.T) {
	sink := &eventSink{}
	r := New(Config{}, sink.record, nil)
	now := time.Now()

	r.Touch(testAddr, protocol.ApplicationDotBot, now)

	b, ok := r.Get(testAddr)
	require.True(t, ok)
	assert.Equal(t, testAddr, b.Address)
	assert.Equal(t, StatusAlive, b.Status)
	assert.Equal(t, protocol.ControlModeManual, b.Mode)
	assert.Nil(t, b.Position)
	assert.Empty(t, b.PositionHistory)
	require.Len(t, sink.ofType(EventBotCreated), 1)

	// A second sighting is not a second creation.
	r.Touch(testAddr, protocol.ApplicationDotBot, now.Add(time.Second))
	assert.Len(t, sink.ofType(EventBotCreated), 1)
}

func TestRegistry_StatusTransitions(t *testing.T) {
	sink := &eventSink{}
	r := New(Config{}, sink.record, nil)
	start := time.Now()

	r.Touch(testAddr, protocol.ApplicationDotBot, start)

	tests := []struct {
		name string
		at   time.Duration
		want Status
	}{
		{"within lost window", 4 * time.Second, StatusAlive},
		{"past lost window", 6 * time.Second, StatusLost},
		{"still within dead window", 59 * time.Second, StatusLost},
		{"past dead window", 61 * time.Second, StatusDead},
	}
	for _, tt := range tests {
		r.Tick(start.Add(tt.at))
		b, _ := r.Get(testAddr)
		assert.Equal(t, tt.want, b.Status, tt.name)
	}

	// Alive→Lost and Lost→Dead, nothing else.
	changes := sink.ofType(EventBotStatusChanged)
	require.Len(t, changes, 2)
	assert.Equal(t, StatusLost, changes[0].Status)
	assert.Equal(t, StatusDead, changes[1].Status)

	// Hearing from a dead bot resurrects it.
	r.Touch(testAddr, protocol.ApplicationDotBot, start.Add(2*time.Minute))
	b, _ := r.Get(testAddr)
	assert.Equal(t, StatusAlive, b.Status)
}

func TestRegistry_PositionThreshold(t *testing.T) {
	r := New(Config{}, nil, nil)
	now := time.Now()

	assert.True(t, r.UpdatePosition(testAddr, protocol.ApplicationDotBot, lh2(0.5, 0.5), now))

	// Sub-threshold jitter is dropped and leaves no trace in history.
	assert.False(t, r.UpdatePosition(testAddr, protocol.ApplicationDotBot, lh2(0.505, 0.5), now))
	b, _ := r.Get(testAddr)
	assert.InDelta(t, 0.5, b.Position.X, 1e-12)
	assert.Empty(t, b.PositionHistory)

	// A real move replaces the fix and archives the previous one.
	assert.True(t, r.UpdatePosition(testAddr, protocol.ApplicationDotBot, lh2(0.52, 0.5), now))
	b, _ = r.Get(testAddr)
	assert.InDelta(t, 0.52, b.Position.X, 1e-12)
	require.Len(t, b.PositionHistory, 1)
	assert.InDelta(t, 0.5, b.PositionHistory[0].X, 1e-12)
}

func TestRegistry_GPSThresholdMeters(t *testing.T) {
	r := New(Config{}, nil, nil)
	now := time.Now()

	assert.True(t, r.UpdatePosition(testAddr, protocol.ApplicationSailBot, gps(48.8566, 2.3522), now))

	// ~1e-5 degrees of latitude is about a meter, well under 5 m.
	assert.False(t, r.UpdatePosition(testAddr, protocol.ApplicationSailBot, gps(48.85661, 2.3522), now))

	// ~1e-4 degrees is about 11 m.
	assert.True(t, r.UpdatePosition(testAddr, protocol.ApplicationSailBot, gps(48.8567, 2.3522), now))
}

func TestRegistry_PositionHistoryBounded(t *testing.T) {
	r := New(Config{MaxPositionHistory: 100}, nil, nil)
	now := time.Now()

	for i := 0; i < 150; i++ {
		r.UpdatePosition(testAddr, protocol.ApplicationDotBot, lh2(float64(i), 0), now)
	}

	b, _ := r.Get(testAddr)
	require.Len(t, b.PositionHistory, 100)
	// Oldest entries were dropped; the newest archived fix is the 149th.
	assert.InDelta(t, 49, b.PositionHistory[0].X, 1e-12)
	assert.InDelta(t, 148, b.PositionHistory[99].X, 1e-12)
	assert.InDelta(t, 149, b.Position.X, 1e-12)
}

func TestRegistry_ClearPositionHistory(t *testing.T) {
	r := New(Config{}, nil, nil)
	now := time.Now()

	r.UpdatePosition(testAddr, protocol.ApplicationDotBot, lh2(0.1, 0.1), now)
	r.UpdatePosition(testAddr, protocol.ApplicationDotBot, lh2(0.9, 0.9), now)

	require.NoError(t, r.ClearPositionHistory(testAddr))
	b, _ := r.Get(testAddr)
	assert.Empty(t, b.PositionHistory)
	assert.NotNil(t, b.Position)

	assert.ErrorIs(t, r.ClearPositionHistory(0xDEAD), ErrUnknownBot)
}

func TestRegistry_WaypointsRejectedNotTruncated(t *testing.T) {
	r := New(Config{}, nil, nil)
	r.Touch(testAddr, protocol.ApplicationDotBot, time.Now())

	short := make([]Position, protocol.MaxWaypoints)
	require.NoError(t, r.SetWaypoints(testAddr, short, 10))
	b, _ := r.Get(testAddr)
	assert.Len(t, b.Waypoints, protocol.MaxWaypoints)
	assert.Equal(t, uint8(10), b.WaypointThreshold)

	long := make([]Position, protocol.MaxWaypoints+1)
	assert.ErrorIs(t, r.SetWaypoints(testAddr, long, 10), ErrTooManyWaypoints)
	b, _ = r.Get(testAddr)
	assert.Len(t, b.Waypoints, protocol.MaxWaypoints, "rejected list must not clobber the previous one")
}

func TestRegistry_CommandFieldsLastWriteWins(t *testing.T) {
	r := New(Config{}, nil, nil)
	r.Touch(testAddr, protocol.ApplicationDotBot, time.Now())

	require.NoError(t, r.SetLED(testAddr, RGBColor{Red: 255}))
	require.NoError(t, r.SetLED(testAddr, RGBColor{Blue: 255}))
	require.NoError(t, r.SetMode(testAddr, protocol.ControlModeAuto))

	b, _ := r.Get(testAddr)
	assert.Equal(t, RGBColor{Blue: 255}, *b.RGBLed)
	assert.Equal(t, protocol.ControlModeAuto, b.Mode)

	assert.ErrorIs(t, r.SetLED(0xDEAD, RGBColor{}), ErrUnknownBot)
	assert.ErrorIs(t, r.SetMode(0xDEAD, protocol.ControlModeAuto), ErrUnknownBot)
}

func TestRegistry_DirectionDeduplicated(t *testing.T) {
	sink := &eventSink{}
	r := New(Config{}, sink.record, nil)
	now := time.Now()

	r.UpdateDirection(testAddr, protocol.ApplicationDotBot, 90, now)
	r.UpdateDirection(testAddr, protocol.ApplicationDotBot, 90, now)
	r.UpdateDirection(testAddr, protocol.ApplicationDotBot, 180, now)

	b, _ := r.Get(testAddr)
	require.NotNil(t, b.Direction)
	assert.Equal(t, int16(180), *b.Direction)
	assert.Len(t, sink.ofType(EventBotUpdated), 2)
}

func TestRegistry_SnapshotsDoNotAlias(t *testing.T) {
	r := New(Config{}, nil, nil)
	now := time.Now()
	r.UpdatePosition(testAddr, protocol.ApplicationDotBot, lh2(0.5, 0.5), now)

	b, _ := r.Get(testAddr)
	b.Position.X = 99
	b.Waypoints = append(b.Waypoints, lh2(0, 0))

	fresh, _ := r.Get(testAddr)
	assert.InDelta(t, 0.5, fresh.Position.X, 1e-12)
	assert.Empty(t, fresh.Waypoints)
}

func TestRegistry_ListSortedByAddress(t *testing.T) {
	r := New(Config{}, nil, nil)
	now := time.Now()
	for _, addr := range []uint64{0xB, 0xA, 0xC} {
		r.Touch(addr, protocol.ApplicationDotBot, now)
	}

	bots := r.List()
	require.Len(t, bots, 3)
	assert.Equal(t, uint64(0xA), bots[0].Address)
	assert.Equal(t, uint64(0xB), bots[1].Address)
	assert.Equal(t, uint64(0xC), bots[2].Address)
}
