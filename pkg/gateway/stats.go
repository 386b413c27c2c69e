// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package gateway

import (
	"fmt"
	"sync"
	"time"
)

// Counters holds the link and pipeline counters at one point in time.
type Counters struct {
	StartTime time.Time

	// Framing layer
	BytesIn       uint64
	Frames        uint64
	FCSErrors     uint64
	FramingErrors uint64

	// Packet layer
	Packets          uint64
	VersionMismatch  uint64
	UnknownPayloads  uint64
	TruncatedPackets uint64

	// Positioning
	Sweeps      uint64
	SweepErrors uint64
	Positions   uint64

	// Outbound
	CommandsSent uint64
	QueueDrops   uint64
}

// FrameRate returns received frames per second since start.
func (c Counters) FrameRate() float64 {
	elapsed := time.Since(c.StartTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(c.Frames) / elapsed
}

// String returns a formatted counter summary. Zero-valued error counters
// are omitted.
func (c Counters) String() string {
	elapsed := time.Since(c.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Bytes In:        %8d\n", c.BytesIn)
	result += fmt.Sprintf("Frames:          %8d\n", c.Frames)
	result += fmt.Sprintf("Packets:         %8d\n", c.Packets)
	if c.FCSErrors > 0 {
		result += fmt.Sprintf("FCS Errors:      %8d\n", c.FCSErrors)
	}
	if c.FramingErrors > 0 {
		result += fmt.Sprintf("Framing Errors:  %8d\n", c.FramingErrors)
	}
	if c.VersionMismatch > 0 {
		result += fmt.Sprintf("Version Errors:  %8d\n", c.VersionMismatch)
	}
	if c.UnknownPayloads > 0 {
		result += fmt.Sprintf("Unknown Types:   %8d\n", c.UnknownPayloads)
	}
	if c.TruncatedPackets > 0 {
		result += fmt.Sprintf("Truncated:       %8d\n", c.TruncatedPackets)
	}
	result += fmt.Sprintf("Sweeps:          %8d\n", c.Sweeps)
	if c.SweepErrors > 0 {
		result += fmt.Sprintf("Sweep Errors:    %8d\n", c.SweepErrors)
	}
	result += fmt.Sprintf("Positions:       %8d\n", c.Positions)
	result += fmt.Sprintf("Commands Sent:   %8d\n", c.CommandsSent)
	if c.QueueDrops > 0 {
		result += fmt.Sprintf("Queue Drops:     %8d\n", c.QueueDrops)
	}
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", c.FrameRate())
	result += "================================\n"
	return result
}

// Statistics is a mutex-guarded Counters; the controller bumps it from
// its pipeline goroutines, displays read a Snapshot.
type Statistics struct {
	mu sync.Mutex
	c  Counters
}

// NewStatistics creates a statistics tracker starting now.
func NewStatistics() *Statistics {
	return &Statistics{c: Counters{StartTime: time.Now()}}
}

// Observe applies fn to the counters under the lock.
func (s *Statistics) Observe(fn func(*Counters)) {
	s.mu.Lock()
	fn(&s.c)
	s.mu.Unlock()
}

// Snapshot returns a copy safe to read without further locking.
func (s *Statistics) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c
}

// Reset zeroes every counter and restarts the clock.
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = Counters{StartTime: time.Now()}
}
