// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package lighthouse

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// State of the calibration workflow.
type State int

// Calibration states
const (
	StateUnknown State = iota
	StateRunning
	StateReady
	StateDone
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateRunning:
		return "running"
	case StateReady:
		return "ready"
	case StateDone:
		return "done"
	default:
		return "invalid"
	}
}

// NumReferencePoints is the number of physical reference locations a
// calibration run must sample.
const NumReferencePoints = 4

// DefaultReferencePoints are the world coordinates of the four reference
// locations, in the normalized [0,1] arena frame.
var DefaultReferencePoints = [NumReferencePoints]AnglePair{
	{X: 0.4, Y: 0.4},
	{X: 0.6, Y: 0.4},
	{X: 0.4, Y: 0.6},
	{X: 0.6, Y: 0.6},
}

var (
	// ErrInvalidCalibrationState is returned when a calibration operation
	// is invoked in a state that does not allow it.
	ErrInvalidCalibrationState = errors.New("lighthouse: invalid calibration state")
	// ErrBadReferenceIndex is returned for a reference index outside the
	// configured set.
	ErrBadReferenceIndex = errors.New("lighthouse: reference index out of range")
	// ErrPositionOutOfBounds is returned when a projected position falls
	// outside the normalized arena.
	ErrPositionOutOfBounds = errors.New("lighthouse: position out of bounds")
)

// Position is a world coordinate in the normalized arena frame.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// calibrationFile is the on-disk shape of a frozen calibration.
type calibrationFile struct {
	Transform  Homography                   `cbor:"1,keyasint"`
	References [NumReferencePoints]AnglePair `cbor:"2,keyasint"`
}

// Manager owns the calibration state machine and the frozen angle-to-world
// transform. Safe for concurrent use.
type Manager struct {
	mu         sync.Mutex
	state      State
	references [NumReferencePoints]AnglePair
	samples    [NumReferencePoints]AnglePair
	sampled    [NumReferencePoints]bool
	transform  Homography

	path   string
	logger *slog.Logger
}

// NewManager creates a calibration manager. If path points at a previously
// saved calibration it is loaded and the manager starts in StateDone;
// otherwise it starts in StateUnknown. path may be empty to disable
// persistence.
func NewManager(path string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		state:      StateUnknown,
		references: DefaultReferencePoints,
		path:       path,
		logger:     logger.With("component", "lighthouse"),
	}
	if path != "" {
		if err := m.load(); err == nil {
			m.state = StateDone
			m.logger.Info("calibration loaded", "path", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("calibration load failed", "path", path, "error", err)
		}
	}
	return m
}

// State returns the current calibration state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start begins (or restarts) a calibration run, discarding all reference
// samples and any frozen transform. Positions must not be computed again
// until a new Apply succeeds.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sampled = [NumReferencePoints]bool{}
	m.samples = [NumReferencePoints]AnglePair{}
	m.transform = Homography{}
	m.state = StateRunning
	m.logger.Info("calibration started")
}

// AddReferencePoint records the current decoded angle pair against the
// known world coordinate of reference location index. Valid while Running
// or Ready (points may be re-sampled in any order); once every index has a
// sample the state becomes Ready.
func (m *Manager) AddReferencePoint(index int, sample AnglePair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateRunning && m.state != StateReady {
		return fmt.Errorf("%w: add reference point in %s", ErrInvalidCalibrationState, m.state)
	}
	if index < 0 || index >= NumReferencePoints {
		return fmt.Errorf("%w: %d", ErrBadReferenceIndex, index)
	}
	m.samples[index] = sample
	m.sampled[index] = true

	complete := true
	for _, ok := range m.sampled {
		complete = complete && ok
	}
	if complete {
		m.state = StateReady
	}
	m.logger.Info("reference point sampled", "index", index, "x", sample.X, "y", sample.Y, "state", m.state.String())
	return nil
}

// Apply fits the angle-to-world transform from the recorded correspondences
// and freezes it. Only valid in StateReady.
func (m *Manager) Apply() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReady {
		return fmt.Errorf("%w: apply in %s", ErrInvalidCalibrationState, m.state)
	}
	transform, err := EstimateHomography(m.samples[:], m.references[:])
	if err != nil {
		return err
	}
	m.transform = transform
	m.state = StateDone
	if m.path != "" {
		if err := m.save(); err != nil {
			m.logger.Warn("calibration save failed", "path", m.path, "error", err)
		}
	}
	m.logger.Info("calibration applied")
	return nil
}

// ComputePosition projects an angle pair through the frozen transform.
// Only valid in StateDone; projections outside the normalized arena are
// rejected.
func (m *Manager) ComputePosition(sample AnglePair) (Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateDone {
		return Position{}, fmt.Errorf("%w: compute position in %s", ErrInvalidCalibrationState, m.state)
	}
	p := m.transform.Project(sample)
	if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
		return Position{}, fmt.Errorf("%w: (%f, %f)", ErrPositionOutOfBounds, p.X, p.Y)
	}
	return Position{X: p.X, Y: p.Y, Z: 0}, nil
}

func (m *Manager) save() error {
	data, err := cbor.Marshal(calibrationFile{Transform: m.transform, References: m.references})
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}
	var file calibrationFile
	if err := cbor.Unmarshal(data, &file); err != nil {
		return err
	}
	m.transform = file.Transform
	m.references = file.References
	return nil
}
