// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package gateway

import (
	"sync"

	"github.com/dotbot-org/botgate/pkg/lighthouse"
	"github.com/dotbot-org/botgate/pkg/registry"
)

// EventKind discriminates hub events.
type EventKind int

// Event kinds
const (
	EventBot EventKind = iota
	EventCalibration
)

// Event is one controller notification fanned out to subscribers: either
// a fleet state change or a calibration state change.
type Event struct {
	Kind             EventKind
	Bot              *registry.Event
	CalibrationState lighthouse.State
}

// Hub fans controller events out to any number of subscribers. Publishing
// never blocks: a subscriber that stops draining its channel loses events
// rather than stalling the packet pipeline.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber with the given channel buffer and
// returns its event channel plus a cancel func. Cancel closes the channel;
// it is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan Event, buffer)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers e to every subscriber that has room for it.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
