// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package lighthouse

import (
	"math"

	"github.com/dotbot-org/botgate/pkg/protocol"
)

// AnglePair is a decoded sweep measurement projected onto the camera plane
// of the emitting basestation: an azimuth-like and an elevation-like
// coordinate.
type AnglePair struct {
	X float64
	Y float64
}

// CameraPoint combines the two sweep counts of one sweep event into an
// angle pair. The sweep period depends on which basestation channel the
// polynomial belongs to.
func CameraPoint(count1, count2 int, polyIndex uint8) AnglePair {
	period := float64(periodChannelA)
	if polyIndex > 1 {
		period = float64(periodChannelB)
	}

	a1 := float64(count1) * 8 / period * 2 * math.Pi
	a2 := float64(count2) * 8 / period * 2 * math.Pi

	camX := -math.Tan(0.5 * (a1 + a2))
	var camY float64
	if count1 < count2 {
		camY = -math.Sin(a2/2-a1/2-60*math.Pi/180) / math.Tan(math.Pi/6)
	} else {
		camY = -math.Sin(a1/2-a2/2-60*math.Pi/180) / math.Tan(math.Pi/6)
	}
	return AnglePair{X: camX, Y: camY}
}

// DecodeSweep turns a raw sweep sample into an angle pair: reverse count
// both captures, then project.
func DecodeSweep(raw protocol.Lh2RawData) (AnglePair, error) {
	counts, err := SweepCounts(raw)
	if err != nil {
		return AnglePair{}, err
	}
	return CameraPoint(counts[0], counts[1], raw.Locations[0].PolynomialIndex), nil
}
