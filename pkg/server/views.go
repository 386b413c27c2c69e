// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package server

import (
	"time"

	"github.com/dotbot-org/botgate/pkg/gateway"
	"github.com/dotbot-org/botgate/pkg/protocol"
	"github.com/dotbot-org/botgate/pkg/registry"
)

// JSON views decouple the wire API from the registry structs: addresses
// travel as 16-digit hex strings, enums as lowercase names.

type positionView struct {
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func newPositionView(p registry.Position) positionView {
	kind := "lh2"
	if p.Kind == registry.PositionGPS {
		kind = "gps"
	}
	return positionView{Kind: kind, X: p.X, Y: p.Y}
}

func (v positionView) toPosition() registry.Position {
	kind := registry.PositionLH2
	if v.Kind == "gps" {
		kind = registry.PositionGPS
	}
	return registry.Position{Kind: kind, X: v.X, Y: v.Y}
}

type rgbLedView struct {
	Red   uint8 `json:"red"`
	Green uint8 `json:"green"`
	Blue  uint8 `json:"blue"`
}

type botView struct {
	Address           string         `json:"address"`
	Application       string         `json:"application"`
	Status            string         `json:"status"`
	Mode              string         `json:"mode"`
	LastSeen          time.Time      `json:"last_seen"`
	Direction         *int16         `json:"direction,omitempty"`
	RGBLed            *rgbLedView    `json:"rgb_led,omitempty"`
	Position          *positionView  `json:"position,omitempty"`
	Waypoints         []positionView `json:"waypoints,omitempty"`
	WaypointThreshold uint8          `json:"waypoint_threshold"`
	PositionHistory   []positionView `json:"position_history,omitempty"`
}

func newBotView(b registry.Bot) botView {
	v := botView{
		Address:           protocol.FormatAddress(b.Address),
		Application:       b.Application.String(),
		Status:            b.Status.String(),
		Mode:              b.Mode.String(),
		LastSeen:          b.LastSeen,
		Direction:         b.Direction,
		WaypointThreshold: b.WaypointThreshold,
	}
	if b.RGBLed != nil {
		v.RGBLed = &rgbLedView{Red: b.RGBLed.Red, Green: b.RGBLed.Green, Blue: b.RGBLed.Blue}
	}
	if b.Position != nil {
		p := newPositionView(*b.Position)
		v.Position = &p
	}
	for _, w := range b.Waypoints {
		v.Waypoints = append(v.Waypoints, newPositionView(w))
	}
	for _, p := range b.PositionHistory {
		v.PositionHistory = append(v.PositionHistory, newPositionView(p))
	}
	return v
}

type eventView struct {
	Type             string        `json:"type"`
	Address          string        `json:"address,omitempty"`
	Status           string        `json:"status,omitempty"`
	Position         *positionView `json:"position,omitempty"`
	Direction        *int16        `json:"direction,omitempty"`
	CalibrationState string        `json:"calibration_state,omitempty"`
}

func newEventView(e gateway.Event) eventView {
	if e.Kind == gateway.EventCalibration {
		return eventView{Type: "calibration_state", CalibrationState: e.CalibrationState.String()}
	}
	v := eventView{
		Type:    e.Bot.Type.String(),
		Address: protocol.FormatAddress(e.Bot.Address),
	}
	if e.Bot.Type == registry.EventBotStatusChanged {
		v.Status = e.Bot.Status.String()
	}
	if e.Bot.Position != nil {
		p := newPositionView(*e.Bot.Position)
		v.Position = &p
	}
	v.Direction = e.Bot.Direction
	return v
}

type moveRawRequest struct {
	LeftX  int `json:"left_x"`
	LeftY  int `json:"left_y"`
	RightX int `json:"right_x"`
	RightY int `json:"right_y"`
}

type rgbLedRequest struct {
	Red   uint8 `json:"red"`
	Green uint8 `json:"green"`
	Blue  uint8 `json:"blue"`
}

type modeRequest struct {
	Mode uint8 `json:"mode"`
}

type waypointsRequest struct {
	Threshold uint8          `json:"threshold"`
	Waypoints []positionView `json:"waypoints"`
}

type calibrationView struct {
	State string `json:"state"`
}
