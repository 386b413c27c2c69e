// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

// Package registry owns the authoritative live state of the bot fleet:
// per-bot status driven by wall-clock liveness windows, bounded position
// history and waypoints, and last-write-wins command fields. Bots are
// created on first sighting and never removed, only marked Dead, so
// address-keyed history stays queryable.
package registry

import (
	"math"
	"time"

	"github.com/dotbot-org/botgate/pkg/protocol"
)

// Status is the liveness state of a bot.
type Status int

// Liveness states
const (
	StatusAlive Status = iota
	StatusLost
	StatusDead
)

func (s Status) String() string {
	switch s {
	case StatusAlive:
		return "alive"
	case StatusLost:
		return "lost"
	case StatusDead:
		return "dead"
	default:
		return "invalid"
	}
}

// PositionKind distinguishes the two positioning systems; their units and
// acceptance thresholds differ.
type PositionKind int

// Position kinds
const (
	PositionLH2 PositionKind = iota
	PositionGPS
)

// Position is a tracked world coordinate: normalized arena coordinates for
// optical positioning, degrees for satellite fixes.
type Position struct {
	Kind PositionKind `json:"kind"`
	X    float64      `json:"x"` // lh2 x, or latitude
	Y    float64      `json:"y"` // lh2 y, or longitude
}

// Distance returns the distance to another position in the kind's native
// unit: arena units for LH2, meters (haversine) for GPS.
func (p Position) Distance(other Position) float64 {
	if p.Kind == PositionGPS {
		return haversineMeters(p.X, p.Y, other.X, other.Y)
	}
	dx := other.X - p.X
	dy := other.Y - p.Y
	return math.Sqrt(dx*dx + dy*dy)
}

const earthRadiusMeters = 6371000

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}

// RGBColor is the last LED color commanded to a bot.
type RGBColor struct {
	Red   uint8 `json:"red"`
	Green uint8 `json:"green"`
	Blue  uint8 `json:"blue"`
}

// Bot is the live state of one robot, keyed by its 8-byte address. Owned
// exclusively by the Registry; callers only ever see copies.
type Bot struct {
	Address     uint64
	Application protocol.Application
	Status      Status
	LastSeen    time.Time

	Position  *Position
	Direction *int16
	RGBLed    *RGBColor
	Mode      protocol.ControlModeType

	Waypoints         []Position
	WaypointThreshold uint8
	PositionHistory   []Position
}

// clone deep-copies a bot so snapshots never alias registry-owned state.
func (b *Bot) clone() Bot {
	c := *b
	if b.Position != nil {
		p := *b.Position
		c.Position = &p
	}
	if b.Direction != nil {
		d := *b.Direction
		c.Direction = &d
	}
	if b.RGBLed != nil {
		l := *b.RGBLed
		c.RGBLed = &l
	}
	c.Waypoints = append([]Position(nil), b.Waypoints...)
	c.PositionHistory = append([]Position(nil), b.PositionHistory...)
	return c
}

// statusAt derives the liveness status from the time since last sighting.
func statusAt(lastSeen, now time.Time, lostWindow, deadWindow time.Duration) Status {
	age := now.Sub(lastSeen)
	switch {
	case age > deadWindow:
		return StatusDead
	case age > lostWindow:
		return StatusLost
	default:
		return StatusAlive
	}
}
