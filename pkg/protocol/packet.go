// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrVersionMismatch is fatal for the packet carrying it: field
	// layouts may differ across versions, so the payload is never
	// interpreted.
	ErrVersionMismatch = errors.New("protocol: version mismatch")
	// ErrUnknownPayloadType marks a payload tag this gateway does not
	// know. Forward compatible: the controller logs and drops it.
	ErrUnknownPayloadType = errors.New("protocol: unknown payload type")
	// ErrTruncatedPayload is returned when a payload body is shorter than
	// its variant requires.
	ErrTruncatedPayload = errors.New("protocol: truncated payload")
	// ErrTruncatedHeader is returned when not even the fixed header fits.
	ErrTruncatedHeader = errors.New("protocol: truncated header")
)

// Header is the fixed packet preamble. Addresses and the swarm id are
// big-endian on the wire; payload fields are little-endian.
type Header struct {
	Destination uint64
	Source      uint64
	SwarmID     uint16
	Application Application
	Version     uint8
}

// Packet is a decoded protocol message: header plus one payload variant.
type Packet struct {
	Header  Header
	Payload Payload
}

// NewPacket builds a packet with the current protocol version.
func NewPacket(destination, source uint64, swarmID uint16, app Application, payload Payload) Packet {
	return Packet{
		Header: Header{
			Destination: destination,
			Source:      source,
			SwarmID:     swarmID,
			Application: app,
			Version:     Version,
		},
		Payload: payload,
	}
}

// Encode serializes the packet to wire format: header, payload type tag,
// payload body. It is the exact inverse of Decode for every variant.
func (p Packet) Encode() []byte {
	buf := make([]byte, 0, HeaderSize+1+32)
	buf = binary.BigEndian.AppendUint64(buf, p.Header.Destination)
	buf = binary.BigEndian.AppendUint64(buf, p.Header.Source)
	buf = binary.BigEndian.AppendUint16(buf, p.Header.SwarmID)
	buf = append(buf, byte(p.Header.Application), p.Header.Version)
	buf = append(buf, byte(p.Payload.PayloadType()))
	return p.Payload.appendTo(buf)
}

// Decode parses a packet from wire format. The version gate runs before any
// payload interpretation.
func Decode(b []byte) (Packet, error) {
	if len(b) < HeaderSize+1 {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrTruncatedHeader, len(b))
	}
	header := Header{
		Destination: binary.BigEndian.Uint64(b[0:8]),
		Source:      binary.BigEndian.Uint64(b[8:16]),
		SwarmID:     binary.BigEndian.Uint16(b[16:18]),
		Application: Application(b[18]),
		Version:     b[19],
	}
	if header.Version != Version {
		return Packet{}, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, header.Version, Version)
	}

	payloadType := PayloadType(b[20])
	body := b[HeaderSize+1:]

	var (
		payload Payload
		err     error
	)
	switch payloadType {
	case PayloadTypeCmdMoveRaw:
		payload, err = decodeCmdMoveRaw(body)
	case PayloadTypeCmdRgbLed:
		payload, err = decodeCmdRgbLed(body)
	case PayloadTypeLh2RawData:
		payload, err = decodeLh2RawData(body)
	case PayloadTypeLh2Location:
		payload, err = decodeLh2Location(body)
	case PayloadTypeAdvertisement:
		payload = Advertisement{}
	case PayloadTypeGpsPosition:
		payload, err = decodeGpsPosition(body)
	case PayloadTypeDotBotData:
		payload, err = decodeDotBotData(body)
	case PayloadTypeControlMode:
		payload, err = decodeControlMode(body)
	case PayloadTypeLh2Waypoints:
		payload, err = decodeLh2Waypoints(body)
	case PayloadTypeGpsWaypoints:
		payload, err = decodeGpsWaypoints(body)
	case PayloadTypeSailBotData:
		payload, err = decodeSailBotData(body)
	case PayloadTypePositionHistoryClear:
		payload = PositionHistoryClear{}
	case PayloadTypeGenericAck:
		payload, err = decodeGenericAck(body)
	default:
		return Packet{}, fmt.Errorf("%w: %d", ErrUnknownPayloadType, payloadType)
	}
	if err != nil {
		return Packet{}, err
	}
	return Packet{Header: header, Payload: payload}, nil
}

// FormatAddress renders an 8-byte address the way operators see it
// everywhere: 16 lowercase hex digits.
func FormatAddress(addr uint64) string {
	return fmt.Sprintf("%016x", addr)
}

// ParseAddress is the inverse of FormatAddress.
func ParseAddress(s string) (uint64, error) {
	var addr uint64
	if len(s) == 0 || len(s) > 16 {
		return 0, fmt.Errorf("protocol: invalid address %q", s)
	}
	if _, err := fmt.Sscanf(s, "%x", &addr); err != nil {
		return 0, fmt.Errorf("protocol: invalid address %q: %w", s, err)
	}
	return addr, nil
}
