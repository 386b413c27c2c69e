// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package registry

// EventType discriminates registry notifications.
type EventType int

// Event types
const (
	EventBotCreated EventType = iota
	EventBotUpdated
	EventBotStatusChanged
)

func (t EventType) String() string {
	switch t {
	case EventBotCreated:
		return "bot_created"
	case EventBotUpdated:
		return "bot_updated"
	case EventBotStatusChanged:
		return "bot_status_changed"
	default:
		return "invalid"
	}
}

// Event describes one state change, emitted synchronously under the
// registry lock. Subscribers must not call back into the registry from
// the notify func.
type Event struct {
	Type    EventType
	Address uint64
	Status  Status // EventBotStatusChanged only

	// EventBotUpdated only; nil fields were not part of the update.
	Position  *Position
	Direction *int16
}
