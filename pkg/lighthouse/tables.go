// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

// Package lighthouse recovers bot positions from raw optical sweep captures:
// an LFSR reverse-counting decoder turns timing captures into sweep counts,
// counts project to camera-plane angle pairs, and a calibration workflow
// fits the homography that maps angle pairs to world coordinates.
package lighthouse

// The four 17-bit LFSR polynomials, one per photodiode axis, and the
// sixteen checkpoint states captured at 1/16 intervals of each sequence's
// period. Copied verbatim from the reference tables: the robot firmware
// generates the same sequences, so any deviation silently breaks
// interoperability. Treat as an opaque compatibility table.
var polynomials = [4]uint64{
	0x0001D258,
	0x00017E04,
	0x0001FF6B,
	0x00013F67,
}

var checkpoints = [4][16]uint64{
	{
		0x00000000000000001,
		0b10101010110011101,
		0b10001010101011010,
		0b11001100100000010,
		0b01100101100011111,
		0b10010001101011110,
		0b10100011001011111,
		0b11110001010110001,
		0b10111000110011011,
		0b10100110100011110,
		0b11001101100010000,
		0b01000101110011111,
		0b11100101011110101,
		0b01001001110110111,
		0b11011100110011101,
		0b10000110101101011,
	},
	{
		0x00000000000000001,
		0b11010000110111110,
		0b10110111100111100,
		0b11000010101101111,
		0b00101110001101110,
		0b01000011000110100,
		0b00010001010011110,
		0b10100101111010001,
		0b10011000000100001,
		0b01110011011010110,
		0b00100011101000011,
		0b10111011010000101,
		0b00110010100110110,
		0b01000111111100110,
		0b10001101000111011,
		0b00111100110011100,
	},
	{
		0x00000000000000001,
		0b00011011011000100,
		0b01011101010010110,
		0b11001011001101010,
		0b01110001111011010,
		0b10110110011111010,
		0b10110001110000001,
		0b10001001011101001,
		0b00000010011101011,
		0b01100010101111011,
		0b00111000001101111,
		0b10101011100111000,
		0b01111110101111111,
		0b01000011110101010,
		0b01001011100000011,
		0b00010110111101110,
	},
	{
		0x00000000000000001,
		0b11011011110010110,
		0b11000100000001101,
		0b11100011000010110,
		0b00011111010001100,
		0b11000001011110011,
		0b10011101110001010,
		0b00001011001111000,
		0b00111100010000101,
		0b01001111001010100,
		0b01011010010110011,
		0b11111101010001100,
		0b00110101011011111,
		0b01110110010101011,
		0b00010000110100010,
		0b00010111110101110,
	},
}

// checkpointSpacing is the number of LFSR steps between consecutive
// checkpoints (period / 16), which is also the worst-case iteration count
// of a reverse count.
const checkpointSpacing = 8192

// Sweep periods in raw clock ticks, per polynomial pair. Polynomials 0/1
// belong to the first basestation channel, 2/3 to the second.
const (
	periodChannelA = 959000
	periodChannelB = 957000
)
