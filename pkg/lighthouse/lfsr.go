// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package lighthouse

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/dotbot-org/botgate/pkg/protocol"
)

var (
	// ErrNoCheckpoint is returned when a capture never reaches a
	// checkpoint within the iteration cap. The sample is dropped; it is
	// not fatal to the bot that sent it.
	ErrNoCheckpoint = errors.New("lighthouse: no checkpoint reached")
	// ErrBadAxis is returned for a polynomial index outside 0..3.
	ErrBadAxis = errors.New("lighthouse: polynomial index out of range")
	// ErrEmptyCapture is returned for an all-zero capture, which carries
	// no sweep information.
	ErrEmptyCapture = errors.New("lighthouse: empty capture")
)

// ReverseCount recovers the logical shift distance of a captured LFSR state
// from the start of the axis' pseudo-random sequence. The buffer is stepped
// backward one bit at a time; after every step it is compared against the
// sixteen checkpoint states, and a hit at checkpoint k fast-forwards the
// count by k*8192. This bounds the walk to one checkpoint spacing instead
// of the full period.
func ReverseCount(polyIndex uint8, capture uint64) (int, error) {
	if int(polyIndex) >= len(polynomials) {
		return 0, fmt.Errorf("%w: %d", ErrBadAxis, polyIndex)
	}
	poly := polynomials[polyIndex]
	buffer := capture

	count := 0
	for iter := 0; iter <= checkpointSpacing; iter++ {
		for k, checkpoint := range checkpoints[polyIndex] {
			if buffer == checkpoint {
				// The k=0 checkpoint is the sequence seed itself;
				// the reference counts it as -1 and the firmware
				// expects that bias, so it is preserved here.
				return count + checkpointSpacing*k - 1, nil
			}
		}
		b17 := buffer & 0b1
		buffer = (buffer & 0x1FFFE) >> 1
		feedback := uint64(bits.OnesCount64(buffer&poly)&1) ^ b17
		buffer |= feedback << 16
		count++
	}
	return 0, fmt.Errorf("%w: axis %d capture %#x", ErrNoCheckpoint, polyIndex, capture)
}

// SweepCounts decodes both captures of a raw sweep sample into their sweep
// counts. The 64-bit capture is aligned using the per-capture bit offset
// before reverse counting.
func SweepCounts(raw protocol.Lh2RawData) (counts [2]int, err error) {
	for i, loc := range raw.Locations {
		if loc.Bits == 0 {
			return counts, ErrEmptyCapture
		}
		shift := 47 - int(loc.Offset)
		if shift < 0 || shift > 63 {
			return counts, fmt.Errorf("lighthouse: capture offset %d out of range", loc.Offset)
		}
		counts[i], err = ReverseCount(loc.PolynomialIndex, loc.Bits>>shift)
		if err != nil {
			return counts, err
		}
	}
	return counts, nil
}
