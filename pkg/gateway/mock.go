// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package gateway

import (
	"io"
	"sync"
)

// MockConnection is an in-memory Connection for tests: queued chunks come
// out of Read, everything written is recorded. Close unblocks readers
// with io.EOF.
type MockConnection struct {
	mu      sync.Mutex
	writes  [][]byte
	reads   chan []byte
	pending []byte
	done    chan struct{}
	once    sync.Once
}

// NewMockConnection creates an open mock link.
func NewMockConnection() *MockConnection {
	return &MockConnection{
		reads: make(chan []byte, 64),
		done:  make(chan struct{}),
	}
}

// QueueRead makes p available to the next Read calls.
func (m *MockConnection) QueueRead(p []byte) {
	buf := append([]byte(nil), p...)
	select {
	case m.reads <- buf:
	case <-m.done:
	}
}

func (m *MockConnection) Read(p []byte) (int, error) {
	m.mu.Lock()
	if len(m.pending) > 0 {
		n := copy(p, m.pending)
		m.pending = m.pending[n:]
		m.mu.Unlock()
		return n, nil
	}
	m.mu.Unlock()

	select {
	case buf := <-m.reads:
		n := copy(p, buf)
		if n < len(buf) {
			m.mu.Lock()
			m.pending = buf[n:]
			m.mu.Unlock()
		}
		return n, nil
	case <-m.done:
		return 0, io.EOF
	}
}

func (m *MockConnection) Write(p []byte) (int, error) {
	select {
	case <-m.done:
		return 0, io.ErrClosedPipe
	default:
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (m *MockConnection) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

// Writes returns a snapshot of everything written so far, one entry per
// Write call.
func (m *MockConnection) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	for i, w := range m.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}
