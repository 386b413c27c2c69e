// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package protocol

import (
	"encoding/binary"
	"fmt"
)

// Payload is the closed set of packet payload variants. Implementations
// live in this package only; the controller switches exhaustively on the
// concrete type.
type Payload interface {
	// PayloadType returns the wire tag of the variant.
	PayloadType() PayloadType

	appendTo(dst []byte) []byte
}

// CmdMoveRaw drives the bot motors directly. All values are in [-100, 100];
// only LeftY and RightY are interpreted by the firmware.
type CmdMoveRaw struct {
	LeftX  int8
	LeftY  int8
	RightX int8
	RightY int8
}

func (CmdMoveRaw) PayloadType() PayloadType { return PayloadTypeCmdMoveRaw }

func (p CmdMoveRaw) appendTo(dst []byte) []byte {
	return append(dst, byte(p.LeftX), byte(p.LeftY), byte(p.RightX), byte(p.RightY))
}

func decodeCmdMoveRaw(b []byte) (Payload, error) {
	if len(b) < 4 {
		return nil, truncated(PayloadTypeCmdMoveRaw, 4, len(b))
	}
	return CmdMoveRaw{int8(b[0]), int8(b[1]), int8(b[2]), int8(b[3])}, nil
}

// CmdRgbLed sets the on-board RGB LED color.
type CmdRgbLed struct {
	Red   uint8
	Green uint8
	Blue  uint8
}

func (CmdRgbLed) PayloadType() PayloadType { return PayloadTypeCmdRgbLed }

func (p CmdRgbLed) appendTo(dst []byte) []byte {
	return append(dst, p.Red, p.Green, p.Blue)
}

func decodeCmdRgbLed(b []byte) (Payload, error) {
	if len(b) < 3 {
		return nil, truncated(PayloadTypeCmdRgbLed, 3, len(b))
	}
	return CmdRgbLed{b[0], b[1], b[2]}, nil
}

// Lh2RawLocation is one raw optical sweep capture: a 64-bit timing capture,
// the polynomial the sweep was recognized against, and the bit offset of the
// capture within it.
type Lh2RawLocation struct {
	Bits            uint64
	PolynomialIndex uint8
	Offset          int8
}

const lh2RawLocationSize = 10

func (l Lh2RawLocation) appendTo(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, l.Bits)
	return append(dst, l.PolynomialIndex, byte(l.Offset))
}

func decodeLh2RawLocation(b []byte) Lh2RawLocation {
	return Lh2RawLocation{
		Bits:            binary.LittleEndian.Uint64(b[0:8]),
		PolynomialIndex: b[8],
		Offset:          int8(b[9]),
	}
}

// Lh2RawData carries two raw sweep captures sharing one sweep event.
type Lh2RawData struct {
	Locations [2]Lh2RawLocation
}

func (Lh2RawData) PayloadType() PayloadType { return PayloadTypeLh2RawData }

func (p Lh2RawData) appendTo(dst []byte) []byte {
	for _, l := range p.Locations {
		dst = l.appendTo(dst)
	}
	return dst
}

func decodeLh2RawData(b []byte) (Payload, error) {
	if len(b) < 2*lh2RawLocationSize {
		return nil, truncated(PayloadTypeLh2RawData, 2*lh2RawLocationSize, len(b))
	}
	return Lh2RawData{Locations: [2]Lh2RawLocation{
		decodeLh2RawLocation(b[0:10]),
		decodeLh2RawLocation(b[10:20]),
	}}, nil
}

// Lh2Location is a computed position, in micrometer-ish fixed point
// (normalized coordinate times 1e6). Sent gateway to bot as a position echo.
type Lh2Location struct {
	X uint32
	Y uint32
	Z uint32
}

const lh2LocationSize = 12

func (Lh2Location) PayloadType() PayloadType { return PayloadTypeLh2Location }

func (p Lh2Location) appendTo(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, p.X)
	dst = binary.LittleEndian.AppendUint32(dst, p.Y)
	return binary.LittleEndian.AppendUint32(dst, p.Z)
}

func decodeLh2Location(b []byte) (Payload, error) {
	if len(b) < lh2LocationSize {
		return nil, truncated(PayloadTypeLh2Location, lh2LocationSize, len(b))
	}
	return Lh2Location{
		X: binary.LittleEndian.Uint32(b[0:4]),
		Y: binary.LittleEndian.Uint32(b[4:8]),
		Z: binary.LittleEndian.Uint32(b[8:12]),
	}, nil
}

// Advertisement is the empty liveness beacon every bot broadcasts.
type Advertisement struct{}

func (Advertisement) PayloadType() PayloadType { return PayloadTypeAdvertisement }

func (Advertisement) appendTo(dst []byte) []byte { return dst }

// GpsPosition is a satellite fix in degrees times 1e6.
type GpsPosition struct {
	Latitude  int32
	Longitude int32
}

const gpsPositionSize = 8

func (GpsPosition) PayloadType() PayloadType { return PayloadTypeGpsPosition }

func (p GpsPosition) appendTo(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(p.Latitude))
	return binary.LittleEndian.AppendUint32(dst, uint32(p.Longitude))
}

func decodeGpsPosition(b []byte) (Payload, error) {
	if len(b) < gpsPositionSize {
		return nil, truncated(PayloadTypeGpsPosition, gpsPositionSize, len(b))
	}
	return GpsPosition{
		Latitude:  int32(binary.LittleEndian.Uint32(b[0:4])),
		Longitude: int32(binary.LittleEndian.Uint32(b[4:8])),
	}, nil
}

// DotBotData bundles the bot heading with a pair of raw sweep captures.
type DotBotData struct {
	Direction int16
	Locations [2]Lh2RawLocation
}

func (DotBotData) PayloadType() PayloadType { return PayloadTypeDotBotData }

func (p DotBotData) appendTo(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, uint16(p.Direction))
	for _, l := range p.Locations {
		dst = l.appendTo(dst)
	}
	return dst
}

func decodeDotBotData(b []byte) (Payload, error) {
	if len(b) < 2+2*lh2RawLocationSize {
		return nil, truncated(PayloadTypeDotBotData, 2+2*lh2RawLocationSize, len(b))
	}
	return DotBotData{
		Direction: int16(binary.LittleEndian.Uint16(b[0:2])),
		Locations: [2]Lh2RawLocation{
			decodeLh2RawLocation(b[2:12]),
			decodeLh2RawLocation(b[12:22]),
		},
	}, nil
}

// SailBotData bundles the heading with a satellite fix.
type SailBotData struct {
	Direction uint16
	Latitude  int32
	Longitude int32
}

func (SailBotData) PayloadType() PayloadType { return PayloadTypeSailBotData }

func (p SailBotData) appendTo(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, p.Direction)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(p.Latitude))
	return binary.LittleEndian.AppendUint32(dst, uint32(p.Longitude))
}

func decodeSailBotData(b []byte) (Payload, error) {
	if len(b) < 10 {
		return nil, truncated(PayloadTypeSailBotData, 10, len(b))
	}
	return SailBotData{
		Direction: binary.LittleEndian.Uint16(b[0:2]),
		Latitude:  int32(binary.LittleEndian.Uint32(b[2:6])),
		Longitude: int32(binary.LittleEndian.Uint32(b[6:10])),
	}, nil
}

// ControlMode switches a bot between manual and autonomous control.
type ControlMode struct {
	Mode ControlModeType
}

func (ControlMode) PayloadType() PayloadType { return PayloadTypeControlMode }

func (p ControlMode) appendTo(dst []byte) []byte {
	return append(dst, byte(p.Mode))
}

func decodeControlMode(b []byte) (Payload, error) {
	if len(b) < 1 {
		return nil, truncated(PayloadTypeControlMode, 1, len(b))
	}
	return ControlMode{Mode: ControlModeType(b[0])}, nil
}

// Lh2Waypoints replaces the waypoint list of a bot navigating on lighthouse
// coordinates. Threshold is the waypoint-reached distance in centimeters.
type Lh2Waypoints struct {
	Threshold uint8
	Waypoints []Lh2Location
}

func (Lh2Waypoints) PayloadType() PayloadType { return PayloadTypeLh2Waypoints }

func (p Lh2Waypoints) appendTo(dst []byte) []byte {
	dst = append(dst, uint8(len(p.Waypoints)), p.Threshold)
	for _, w := range p.Waypoints {
		dst = w.appendTo(dst)
	}
	return dst
}

func decodeLh2Waypoints(b []byte) (Payload, error) {
	if len(b) < 2 {
		return nil, truncated(PayloadTypeLh2Waypoints, 2, len(b))
	}
	count := int(b[0])
	if len(b) < 2+count*lh2LocationSize {
		return nil, truncated(PayloadTypeLh2Waypoints, 2+count*lh2LocationSize, len(b))
	}
	p := Lh2Waypoints{Threshold: b[1]}
	for i := 0; i < count; i++ {
		w, _ := decodeLh2Location(b[2+i*lh2LocationSize:])
		p.Waypoints = append(p.Waypoints, w.(Lh2Location))
	}
	return p, nil
}

// GpsWaypoints replaces the waypoint list of a bot navigating on satellite
// coordinates. Threshold is the waypoint-reached distance in meters.
type GpsWaypoints struct {
	Threshold uint8
	Waypoints []GpsPosition
}

func (GpsWaypoints) PayloadType() PayloadType { return PayloadTypeGpsWaypoints }

func (p GpsWaypoints) appendTo(dst []byte) []byte {
	dst = append(dst, uint8(len(p.Waypoints)), p.Threshold)
	for _, w := range p.Waypoints {
		dst = w.appendTo(dst)
	}
	return dst
}

func decodeGpsWaypoints(b []byte) (Payload, error) {
	if len(b) < 2 {
		return nil, truncated(PayloadTypeGpsWaypoints, 2, len(b))
	}
	count := int(b[0])
	if len(b) < 2+count*gpsPositionSize {
		return nil, truncated(PayloadTypeGpsWaypoints, 2+count*gpsPositionSize, len(b))
	}
	p := GpsWaypoints{Threshold: b[1]}
	for i := 0; i < count; i++ {
		w, _ := decodeGpsPosition(b[2+i*gpsPositionSize:])
		p.Waypoints = append(p.Waypoints, w.(GpsPosition))
	}
	return p, nil
}

// PositionHistoryClear asks the gateway to forget a bot's recorded track.
type PositionHistoryClear struct{}

func (PositionHistoryClear) PayloadType() PayloadType { return PayloadTypePositionHistoryClear }

func (PositionHistoryClear) appendTo(dst []byte) []byte { return dst }

// GenericAck acknowledges a previously received payload type. Carries no
// state; the controller forwards it as an event without touching the
// registry.
type GenericAck struct {
	AckType PayloadType
}

func (GenericAck) PayloadType() PayloadType { return PayloadTypeGenericAck }

func (p GenericAck) appendTo(dst []byte) []byte {
	return append(dst, byte(p.AckType))
}

func decodeGenericAck(b []byte) (Payload, error) {
	if len(b) < 1 {
		return nil, truncated(PayloadTypeGenericAck, 1, len(b))
	}
	return GenericAck{AckType: PayloadType(b[0])}, nil
}

func truncated(t PayloadType, want, got int) error {
	return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrTruncatedPayload, t, want, got)
}
