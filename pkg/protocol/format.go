// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package protocol

import (
	"fmt"
	"strings"
)

// FormatPacket formats a decoded packet into a human-readable line, used
// by the monitor command and debug logs.
func FormatPacket(p Packet) string {
	h := p.Header
	result := fmt.Sprintf("%s (0x%02X) src=%s dst=%s swarm=0x%04X app=%s\n",
		p.Payload.PayloadType(), uint8(p.Payload.PayloadType()),
		FormatAddress(h.Source), FormatAddress(h.Destination), h.SwarmID, h.Application)

	if detail := formatPayload(p.Payload); detail != "" {
		result += detail
	}
	return result
}

func formatPayload(payload Payload) string {
	switch p := payload.(type) {
	case CmdMoveRaw:
		return fmt.Sprintf("  left=(%d, %d) right=(%d, %d)\n", p.LeftX, p.LeftY, p.RightX, p.RightY)
	case CmdRgbLed:
		return fmt.Sprintf("  rgb=(%d, %d, %d)\n", p.Red, p.Green, p.Blue)
	case Lh2RawData:
		var b strings.Builder
		for i, loc := range p.Locations {
			fmt.Fprintf(&b, "  sweep %d: bits=0x%016X poly=%d offset=%d\n",
				i, loc.Bits, loc.PolynomialIndex, loc.Offset)
		}
		return b.String()
	case Lh2Location:
		return fmt.Sprintf("  pos=(%.6f, %.6f, %.6f)\n",
			float64(p.X)/1e6, float64(p.Y)/1e6, float64(p.Z)/1e6)
	case GpsPosition:
		return fmt.Sprintf("  lat=%.6f lon=%.6f\n",
			float64(p.Latitude)/1e6, float64(p.Longitude)/1e6)
	case DotBotData:
		var b strings.Builder
		fmt.Fprintf(&b, "  direction=%d\n", p.Direction)
		for i, loc := range p.Locations {
			fmt.Fprintf(&b, "  sweep %d: bits=0x%016X poly=%d offset=%d\n",
				i, loc.Bits, loc.PolynomialIndex, loc.Offset)
		}
		return b.String()
	case SailBotData:
		return fmt.Sprintf("  direction=%d lat=%.6f lon=%.6f\n",
			p.Direction, float64(p.Latitude)/1e6, float64(p.Longitude)/1e6)
	case ControlMode:
		return fmt.Sprintf("  mode=%s\n", p.Mode)
	case Lh2Waypoints:
		var b strings.Builder
		fmt.Fprintf(&b, "  threshold=%d count=%d\n", p.Threshold, len(p.Waypoints))
		for i, wp := range p.Waypoints {
			fmt.Fprintf(&b, "  waypoint %d: (%.6f, %.6f)\n", i, float64(wp.X)/1e6, float64(wp.Y)/1e6)
		}
		return b.String()
	case GpsWaypoints:
		var b strings.Builder
		fmt.Fprintf(&b, "  threshold=%d count=%d\n", p.Threshold, len(p.Waypoints))
		for i, wp := range p.Waypoints {
			fmt.Fprintf(&b, "  waypoint %d: lat=%.6f lon=%.6f\n",
				i, float64(wp.Latitude)/1e6, float64(wp.Longitude)/1e6)
		}
		return b.String()
	case GenericAck:
		return fmt.Sprintf("  ack for %s\n", p.AckType)
	default:
		return ""
	}
}
