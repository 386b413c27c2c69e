// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package protocol

import (
	"errors"
	"fmt"
)

// Command builders validate payloads at the boundary, before anything
// enters the codec. They return ready-to-encode payload values.

var (
	// ErrMoveValueOutOfRange is returned for move commands outside
	// [MoveRawMin, MoveRawMax].
	ErrMoveValueOutOfRange = errors.New("protocol: move value out of range")
	// ErrTooManyWaypoints is returned when a waypoints command exceeds
	// MaxWaypoints.
	ErrTooManyWaypoints = errors.New("protocol: too many waypoints")
)

// NewCmdMoveRaw builds a validated raw move command.
func NewCmdMoveRaw(leftX, leftY, rightX, rightY int) (CmdMoveRaw, error) {
	for _, v := range []int{leftX, leftY, rightX, rightY} {
		if v < MoveRawMin || v > MoveRawMax {
			return CmdMoveRaw{}, fmt.Errorf("%w: %d", ErrMoveValueOutOfRange, v)
		}
	}
	return CmdMoveRaw{
		LeftX:  int8(leftX),
		LeftY:  int8(leftY),
		RightX: int8(rightX),
		RightY: int8(rightY),
	}, nil
}

// NewCmdRgbLed builds an RGB LED command. All 8-bit values are valid.
func NewCmdRgbLed(red, green, blue uint8) CmdRgbLed {
	return CmdRgbLed{Red: red, Green: green, Blue: blue}
}

// NewControlMode builds a control mode command.
func NewControlMode(mode ControlModeType) ControlMode {
	return ControlMode{Mode: mode}
}

// NewLh2Waypoints builds a waypoints command for lighthouse navigation.
// Over-cap lists are rejected so the caller can tell, not truncated.
func NewLh2Waypoints(threshold uint8, waypoints []Lh2Location) (Lh2Waypoints, error) {
	if len(waypoints) > MaxWaypoints {
		return Lh2Waypoints{}, fmt.Errorf("%w: %d (max %d)", ErrTooManyWaypoints, len(waypoints), MaxWaypoints)
	}
	return Lh2Waypoints{Threshold: threshold, Waypoints: waypoints}, nil
}

// NewGpsWaypoints builds a waypoints command for satellite navigation.
func NewGpsWaypoints(threshold uint8, waypoints []GpsPosition) (GpsWaypoints, error) {
	if len(waypoints) > MaxWaypoints {
		return GpsWaypoints{}, fmt.Errorf("%w: %d (max %d)", ErrTooManyWaypoints, len(waypoints), MaxWaypoints)
	}
	return GpsWaypoints{Threshold: threshold, Waypoints: waypoints}, nil
}
