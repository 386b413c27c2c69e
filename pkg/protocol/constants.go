// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

// Package protocol implements the versioned binary packet format spoken by
// the bots. A packet is a fixed 20-byte header followed by a type-tagged
// payload; field widths and byte order are frozen per protocol version to
// stay compatible with deployed firmware.
package protocol

// Version is the protocol version this gateway negotiates. Packets carrying
// any other version are rejected before their payload is interpreted.
const Version = 7

// Header sizes
const (
	AddressSize = 8
	HeaderSize  = 20 // dst(8) + src(8) + swarm(2) + application(1) + version(1)
)

// Special addresses
const (
	AddressBroadcast      = 0xFFFFFFFFFFFFFFFF
	AddressGatewayDefault = 0x0000000000000000
)

// PayloadType tags the payload variant carried by a packet.
type PayloadType uint8

// Payload type values. The numbering is a wire constant shared with the
// firmware; never reorder.
const (
	PayloadTypeCmdMoveRaw           PayloadType = 0
	PayloadTypeCmdRgbLed            PayloadType = 1
	PayloadTypeLh2RawData           PayloadType = 2
	PayloadTypeLh2Location          PayloadType = 3
	PayloadTypeAdvertisement        PayloadType = 4
	PayloadTypeGpsPosition          PayloadType = 5
	PayloadTypeDotBotData           PayloadType = 6
	PayloadTypeControlMode          PayloadType = 7
	PayloadTypeLh2Waypoints         PayloadType = 8
	PayloadTypeGpsWaypoints         PayloadType = 9
	PayloadTypeSailBotData          PayloadType = 10
	PayloadTypePositionHistoryClear PayloadType = 11
	PayloadTypeGenericAck           PayloadType = 12
)

func (t PayloadType) String() string {
	switch t {
	case PayloadTypeCmdMoveRaw:
		return "CMD_MOVE_RAW"
	case PayloadTypeCmdRgbLed:
		return "CMD_RGB_LED"
	case PayloadTypeLh2RawData:
		return "LH2_RAW_DATA"
	case PayloadTypeLh2Location:
		return "LH2_LOCATION"
	case PayloadTypeAdvertisement:
		return "ADVERTISEMENT"
	case PayloadTypeGpsPosition:
		return "GPS_POSITION"
	case PayloadTypeDotBotData:
		return "DOTBOT_DATA"
	case PayloadTypeControlMode:
		return "CONTROL_MODE"
	case PayloadTypeLh2Waypoints:
		return "LH2_WAYPOINTS"
	case PayloadTypeGpsWaypoints:
		return "GPS_WAYPOINTS"
	case PayloadTypeSailBotData:
		return "SAILBOT_DATA"
	case PayloadTypePositionHistoryClear:
		return "POSITION_HISTORY_CLEAR"
	case PayloadTypeGenericAck:
		return "GENERIC_ACK"
	default:
		return "UNKNOWN"
	}
}

// Application identifies the firmware flavor running on a bot.
type Application uint8

// Application values
const (
	ApplicationDotBot  Application = 0
	ApplicationSailBot Application = 1
)

func (a Application) String() string {
	switch a {
	case ApplicationDotBot:
		return "DotBot"
	case ApplicationSailBot:
		return "SailBot"
	default:
		return "Unknown"
	}
}

// ControlModeType selects between operator-driven and autonomous control.
type ControlModeType uint8

// Control mode values
const (
	ControlModeManual ControlModeType = 0
	ControlModeAuto   ControlModeType = 1
)

func (m ControlModeType) String() string {
	switch m {
	case ControlModeManual:
		return "Manual"
	case ControlModeAuto:
		return "Auto"
	default:
		return "Unknown"
	}
}

// Move command bounds. Only the Y axes are firmware-significant but all four
// values are range-checked at the command boundary.
const (
	MoveRawMin = -100
	MoveRawMax = 100
)

// MaxWaypoints caps a waypoints command. Excess entries are rejected, not
// truncated, so the caller can detect the condition.
const MaxWaypoints = 16
