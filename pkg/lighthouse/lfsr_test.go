// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package lighthouse

import (
	"errors"
	"math/bits"
	"testing"

	"github.com/dotbot-org/botgate/pkg/protocol"
)

// forwardStep advances an LFSR state by one shift, the direction the
// firmware generates the sequence. ReverseCount walks the other way.
func forwardStep(state, poly uint64) uint64 {
	feedback := uint64(bits.OnesCount64(state&poly) & 1)
	return ((state << 1) & 0x1FFFF) | feedback
}

func TestReverseCount_AtCheckpoints(t *testing.T) {
	for axis := uint8(0); axis < 4; axis++ {
		for k, checkpoint := range checkpoints[axis] {
			count, err := ReverseCount(axis, checkpoint)
			if err != nil {
				t.Fatalf("axis %d checkpoint %d: %v", axis, k, err)
			}
			want := checkpointSpacing*k - 1
			if count != want {
				t.Errorf("axis %d checkpoint %d: count = %d, want %d", axis, k, count, want)
			}
		}
	}
}

func TestReverseCount_ShiftedFromCheckpoint(t *testing.T) {
	for axis := uint8(0); axis < 4; axis++ {
		for _, k := range []int{0, 1, 7, 15} {
			for _, steps := range []int{1, 2, 17, 100} {
				state := checkpoints[axis][k]
				for i := 0; i < steps; i++ {
					state = forwardStep(state, polynomials[axis])
				}
				count, err := ReverseCount(axis, state)
				if err != nil {
					t.Fatalf("axis %d checkpoint %d +%d: %v", axis, k, steps, err)
				}
				want := checkpointSpacing*k - 1 + steps
				if count != want {
					t.Errorf("axis %d checkpoint %d +%d: count = %d, want %d", axis, k, steps, count, want)
				}
			}
		}
	}
}

func TestReverseCount_Deterministic(t *testing.T) {
	state := checkpoints[2][5]
	for i := 0; i < 321; i++ {
		state = forwardStep(state, polynomials[2])
	}
	first, err := ReverseCount(2, state)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ReverseCount(2, state)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("not deterministic: %d != %d", first, second)
	}
}

func TestReverseCount_NoCheckpoint(t *testing.T) {
	// The all-zero state is a fixed point of the shift and never reaches
	// a checkpoint; the iteration cap must fire.
	_, err := ReverseCount(0, 0)
	if !errors.Is(err, ErrNoCheckpoint) {
		t.Errorf("expected ErrNoCheckpoint, got %v", err)
	}
}

func TestReverseCount_BadAxis(t *testing.T) {
	_, err := ReverseCount(4, 1)
	if !errors.Is(err, ErrBadAxis) {
		t.Errorf("expected ErrBadAxis, got %v", err)
	}
}

func TestSweepCounts(t *testing.T) {
	// A capture places the 17-bit state at bit 47 when the offset is 0.
	stateA := checkpoints[0][3]
	stateB := checkpoints[1][3]
	for i := 0; i < 12; i++ {
		stateB = forwardStep(stateB, polynomials[1])
	}
	raw := protocol.Lh2RawData{Locations: [2]protocol.Lh2RawLocation{
		{Bits: stateA << 47, PolynomialIndex: 0, Offset: 0},
		{Bits: stateB << 47, PolynomialIndex: 1, Offset: 0},
	}}
	counts, err := SweepCounts(raw)
	if err != nil {
		t.Fatal(err)
	}
	if counts[0] != checkpointSpacing*3-1 {
		t.Errorf("counts[0] = %d", counts[0])
	}
	if counts[1] != checkpointSpacing*3-1+12 {
		t.Errorf("counts[1] = %d", counts[1])
	}
}

func TestSweepCounts_EmptyCapture(t *testing.T) {
	raw := protocol.Lh2RawData{Locations: [2]protocol.Lh2RawLocation{
		{Bits: 0, PolynomialIndex: 0, Offset: 0},
		{Bits: 1 << 47, PolynomialIndex: 1, Offset: 0},
	}}
	if _, err := SweepCounts(raw); !errors.Is(err, ErrEmptyCapture) {
		t.Errorf("expected ErrEmptyCapture, got %v", err)
	}
}

func TestCameraPoint_Deterministic(t *testing.T) {
	a := CameraPoint(12345, 23456, 0)
	b := CameraPoint(12345, 23456, 0)
	if a != b {
		t.Errorf("CameraPoint not deterministic: %v != %v", a, b)
	}
	// Channel B uses a different period, so the projection differs.
	c := CameraPoint(12345, 23456, 2)
	if a == c {
		t.Error("expected channel A and B projections to differ")
	}
}

func TestCameraPoint_SymmetricCounts(t *testing.T) {
	// Swapping the counts flips neither axis: the formulas use the
	// absolute sweep separation.
	a := CameraPoint(10000, 20000, 0)
	b := CameraPoint(20000, 10000, 0)
	if a.Y != b.Y {
		t.Errorf("Y mismatch: %f != %f", a.Y, b.Y)
	}
	if a.X != b.X {
		t.Errorf("X mismatch: %f != %f", a.X, b.X)
	}
}
