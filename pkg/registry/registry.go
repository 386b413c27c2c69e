// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package registry

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dotbot-org/botgate/pkg/protocol"
)

// Registry errors
var (
	ErrUnknownBot       = errors.New("registry: unknown bot address")
	ErrTooManyWaypoints = errors.New("registry: waypoint list exceeds maximum")
)

// Config tunes the liveness windows and bookkeeping bounds. Zero values
// are replaced by the defaults below.
type Config struct {
	LostWindow time.Duration // silence before Alive degrades to Lost
	DeadWindow time.Duration // silence before Lost degrades to Dead

	MaxPositionHistory int
	MaxWaypoints       int

	// Position updates closer than these to the current fix are dropped
	// as sensor noise. LH2 in arena units, GPS in meters.
	LH2Threshold float64
	GPSThreshold float64
}

// Defaults for Config fields left zero.
const (
	DefaultLostWindow         = 5 * time.Second
	DefaultDeadWindow         = 60 * time.Second
	DefaultMaxPositionHistory = 100
	DefaultLH2Threshold       = 0.01
	DefaultGPSThreshold       = 5.0
)

func (c Config) withDefaults() Config {
	if c.LostWindow == 0 {
		c.LostWindow = DefaultLostWindow
	}
	if c.DeadWindow == 0 {
		c.DeadWindow = DefaultDeadWindow
	}
	if c.MaxPositionHistory == 0 {
		c.MaxPositionHistory = DefaultMaxPositionHistory
	}
	if c.MaxWaypoints == 0 {
		c.MaxWaypoints = protocol.MaxWaypoints
	}
	if c.LH2Threshold == 0 {
		c.LH2Threshold = DefaultLH2Threshold
	}
	if c.GPSThreshold == 0 {
		c.GPSThreshold = DefaultGPSThreshold
	}
	return c
}

// Registry is the mutex-guarded fleet table. All exported methods are
// safe for concurrent use; returned bots are snapshots.
type Registry struct {
	mu     sync.RWMutex
	bots   map[uint64]*Bot
	cfg    Config
	notify func(Event)
	log    *slog.Logger
}

// New creates an empty registry. notify may be nil; when set it is
// invoked synchronously for every state change.
func New(cfg Config, notify func(Event), logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if notify == nil {
		notify = func(Event) {}
	}
	return &Registry{
		bots:   make(map[uint64]*Bot),
		cfg:    cfg.withDefaults(),
		notify: notify,
		log:    logger.With("component", "registry"),
	}
}

// Touch records a sighting of addr at now, creating the bot on first
// contact. Any inbound packet from a bot counts as a sighting.
func (r *Registry) Touch(addr uint64, app protocol.Application, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchLocked(addr, app, now)
}

func (r *Registry) touchLocked(addr uint64, app protocol.Application, now time.Time) *Bot {
	b, ok := r.bots[addr]
	if !ok {
		b = &Bot{
			Address:     addr,
			Application: app,
			Status:      StatusAlive,
			LastSeen:    now,
			Mode:        protocol.ControlModeManual,
		}
		r.bots[addr] = b
		r.log.Info("new bot", "address", protocol.FormatAddress(addr), "application", app)
		r.notify(Event{Type: EventBotCreated, Address: addr})
		return b
	}
	b.Application = app
	b.LastSeen = now
	if b.Status != StatusAlive {
		b.Status = StatusAlive
		r.notify(Event{Type: EventBotStatusChanged, Address: addr, Status: StatusAlive})
	}
	return b
}

// UpdatePosition records a new fix for addr, creating the bot if needed.
// Fixes within the kind's noise threshold of the current position are
// discarded. An accepted fix pushes the previous one onto the bounded
// history, dropping the oldest entry once full. Returns whether the fix
// was accepted.
func (r *Registry) UpdatePosition(addr uint64, app protocol.Application, pos Position, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.touchLocked(addr, app, now)
	if b.Position != nil && b.Position.Kind == pos.Kind {
		threshold := r.cfg.LH2Threshold
		if pos.Kind == PositionGPS {
			threshold = r.cfg.GPSThreshold
		}
		if b.Position.Distance(pos) < threshold {
			return false
		}
		b.PositionHistory = append(b.PositionHistory, *b.Position)
		if len(b.PositionHistory) > r.cfg.MaxPositionHistory {
			b.PositionHistory = b.PositionHistory[1:]
		}
	}
	p := pos
	b.Position = &p
	r.notify(Event{Type: EventBotUpdated, Address: addr, Position: &p})
	return true
}

// UpdateDirection records the heading reported by addr, in degrees.
func (r *Registry) UpdateDirection(addr uint64, app protocol.Application, direction int16, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.touchLocked(addr, app, now)
	if b.Direction != nil && *b.Direction == direction {
		return
	}
	d := direction
	b.Direction = &d
	r.notify(Event{Type: EventBotUpdated, Address: addr, Direction: &d})
}

// SetLED remembers the last LED color commanded to addr.
func (r *Registry) SetLED(addr uint64, color RGBColor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bots[addr]
	if !ok {
		return ErrUnknownBot
	}
	l := color
	b.RGBLed = &l
	r.notify(Event{Type: EventBotUpdated, Address: addr})
	return nil
}

// SetMode remembers the last control mode commanded to addr.
func (r *Registry) SetMode(addr uint64, mode protocol.ControlModeType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bots[addr]
	if !ok {
		return ErrUnknownBot
	}
	b.Mode = mode
	r.notify(Event{Type: EventBotUpdated, Address: addr})
	return nil
}

// SetWaypoints replaces addr's waypoint list. Lists longer than the
// configured maximum are rejected whole, never truncated.
func (r *Registry) SetWaypoints(addr uint64, waypoints []Position, threshold uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bots[addr]
	if !ok {
		return ErrUnknownBot
	}
	if len(waypoints) > r.cfg.MaxWaypoints {
		return ErrTooManyWaypoints
	}
	b.Waypoints = append([]Position(nil), waypoints...)
	b.WaypointThreshold = threshold
	r.notify(Event{Type: EventBotUpdated, Address: addr})
	return nil
}

// ClearPositionHistory empties addr's position history. The current
// position is untouched.
func (r *Registry) ClearPositionHistory(addr uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bots[addr]
	if !ok {
		return ErrUnknownBot
	}
	b.PositionHistory = nil
	r.notify(Event{Type: EventBotUpdated, Address: addr})
	return nil
}

// Get returns a snapshot of one bot.
func (r *Registry) Get(addr uint64) (Bot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bots[addr]
	if !ok {
		return Bot{}, false
	}
	return b.clone(), true
}

// List returns snapshots of all known bots, ordered by address.
func (r *Registry) List() []Bot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Bot, 0, len(r.bots))
	for _, b := range r.bots {
		out = append(out, b.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Tick re-derives every bot's status from the time since its last
// sighting and emits a status event per transition. Dead is terminal
// until the bot is heard from again.
func (r *Registry) Tick(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for addr, b := range r.bots {
		next := statusAt(b.LastSeen, now, r.cfg.LostWindow, r.cfg.DeadWindow)
		if next == b.Status {
			continue
		}
		r.log.Debug("bot status change",
			"address", protocol.FormatAddress(addr),
			"from", b.Status, "to", next)
		b.Status = next
		r.notify(Event{Type: EventBotStatusChanged, Address: addr, Status: next})
	}
}
