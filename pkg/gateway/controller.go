// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

// Package gateway runs the controller that bridges the framed byte link to
// the fleet state: inbound bytes are deframed, decoded and dispatched into
// the registry and the lighthouse pipeline, outbound commands are encoded,
// framed and queued onto the link.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dotbot-org/botgate/pkg/hdlc"
	"github.com/dotbot-org/botgate/pkg/lighthouse"
	"github.com/dotbot-org/botgate/pkg/protocol"
	"github.com/dotbot-org/botgate/pkg/registry"
)

// Controller errors
var (
	ErrQueueFull = errors.New("gateway: outbound queue full")
	ErrNoSweep   = errors.New("gateway: no sweep decoded yet")
)

// Config tunes the controller. Zero values fall back to the defaults
// below.
type Config struct {
	Address          uint64 // our address in outbound headers
	SwarmID          uint16
	QueueSize        int           // outbound frame queue depth
	LivenessInterval time.Duration // registry tick period
	CalibrationPath  string        // empty disables persistence

	Registry registry.Config
}

// Defaults for Config fields left zero.
const (
	DefaultQueueSize        = 64
	DefaultLivenessInterval = time.Second
)

// Controller owns the packet pipeline for one gateway link. Create with
// New, drive with Run; command and query methods are safe to call from
// any goroutine while Run is active.
type Controller struct {
	cfg   Config
	conn  Connection
	log   *slog.Logger
	hub   *Hub
	stats *Statistics

	reg   *registry.Registry
	calib *lighthouse.Manager

	out chan []byte

	sweeps chan lighthouse.AnglePair // capacity 1, holds the latest decoded sweep
}

// New wires a controller around the given byte link.
func New(cfg Config, conn Connection, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.LivenessInterval == 0 {
		cfg.LivenessInterval = DefaultLivenessInterval
	}

	c := &Controller{
		cfg:    cfg,
		conn:   conn,
		log:    logger.With("component", "gateway"),
		hub:    NewHub(),
		stats:  NewStatistics(),
		calib:  lighthouse.NewManager(cfg.CalibrationPath, logger),
		out:    make(chan []byte, cfg.QueueSize),
		sweeps: make(chan lighthouse.AnglePair, 1),
	}
	c.reg = registry.New(cfg.Registry, func(e registry.Event) {
		ev := e
		c.hub.Publish(Event{Kind: EventBot, Bot: &ev})
	}, logger)
	return c
}

// Hub returns the event hub for subscribers (servers, TUIs).
func (c *Controller) Hub() *Hub { return c.hub }

// Registry returns the live fleet state.
func (c *Controller) Registry() *registry.Registry { return c.reg }

// Stats returns the pipeline counters.
func (c *Controller) Stats() *Statistics { return c.stats }

// Run drives the pipeline until ctx is cancelled or the link fails. The
// connection is closed on return.
func (c *Controller) Run(ctx context.Context) error {
	// Announce our protocol version so mismatched firmware can bail out
	// before parsing anything else.
	if _, err := c.conn.Write([]byte{protocol.Version}); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writeLoop(ctx)
	go c.tickLoop(ctx)
	go func() {
		// Unblock the pending Read when we are told to stop.
		<-ctx.Done()
		c.conn.Close()
	}()

	err := c.readLoop(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *Controller) readLoop(ctx context.Context) error {
	handler := hdlc.NewHandler()
	buf := make([]byte, 1024)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.stats.Observe(func(s *Counters) { s.BytesIn += uint64(n) })
			frames := handler.Feed(buf[:n], func(err error) {
				c.stats.Observe(func(s *Counters) {
					if errors.Is(err, hdlc.ErrInvalidFCS) {
						s.FCSErrors++
					} else {
						s.FramingErrors++
					}
				})
				c.log.Debug("frame error", "error", err)
			})
			for _, frame := range frames {
				c.handleFrame(frame)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error("link read failed", "error", err)
			return err
		}
	}
}

func (c *Controller) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-c.out:
			if _, err := c.conn.Write(frame); err != nil {
				c.log.Error("link write failed", "error", err)
				return
			}
		}
	}
}

func (c *Controller) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.LivenessInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.reg.Tick(now)
		}
	}
}

// handleFrame decodes one deframed payload and dispatches it. Decode
// failures are counted and dropped; one bad packet never stops the loop.
func (c *Controller) handleFrame(frame []byte) {
	c.stats.Observe(func(s *Counters) { s.Frames++ })

	pkt, err := protocol.Decode(frame)
	if err != nil {
		c.stats.Observe(func(s *Counters) {
			switch {
			case errors.Is(err, protocol.ErrVersionMismatch):
				s.VersionMismatch++
			case errors.Is(err, protocol.ErrUnknownPayloadType):
				s.UnknownPayloads++
			default:
				s.TruncatedPackets++
			}
		})
		c.log.Debug("packet dropped", "error", err)
		return
	}
	c.stats.Observe(func(s *Counters) { s.Packets++ })

	now := time.Now()
	addr := pkt.Header.Source
	app := pkt.Header.Application

	switch p := pkt.Payload.(type) {
	case protocol.Advertisement:
		c.reg.Touch(addr, app, now)
	case protocol.Lh2RawData:
		c.handleSweep(addr, app, p, now)
	case protocol.DotBotData:
		c.reg.UpdateDirection(addr, app, p.Direction, now)
		c.handleSweep(addr, app, protocol.Lh2RawData{Locations: p.Locations}, now)
	case protocol.Lh2Location:
		c.reg.UpdatePosition(addr, app, registry.Position{
			Kind: registry.PositionLH2,
			X:    float64(p.X) / 1e6,
			Y:    float64(p.Y) / 1e6,
		}, now)
	case protocol.GpsPosition:
		c.reg.UpdatePosition(addr, app, registry.Position{
			Kind: registry.PositionGPS,
			X:    float64(p.Latitude) / 1e6,
			Y:    float64(p.Longitude) / 1e6,
		}, now)
	case protocol.SailBotData:
		c.reg.UpdateDirection(addr, app, int16(p.Direction), now)
		c.reg.UpdatePosition(addr, app, registry.Position{
			Kind: registry.PositionGPS,
			X:    float64(p.Latitude) / 1e6,
			Y:    float64(p.Longitude) / 1e6,
		}, now)
	case protocol.GenericAck:
		c.reg.Touch(addr, app, now)
		c.log.Debug("ack", "address", protocol.FormatAddress(addr), "for", p.AckType)
	default:
		// Command payloads echoed by the radio still prove the sender is
		// alive.
		c.reg.Touch(addr, app, now)
	}
}

// handleSweep runs a raw capture through the lighthouse pipeline. The
// decoded angle pair is kept for calibration sampling; when a calibration
// is frozen the projected position is stored and echoed back to the bot,
// which uses it for autonomous waypoint driving.
func (c *Controller) handleSweep(addr uint64, app protocol.Application, raw protocol.Lh2RawData, now time.Time) {
	c.reg.Touch(addr, app, now)

	pair, err := lighthouse.DecodeSweep(raw)
	if err != nil {
		c.stats.Observe(func(s *Counters) { s.SweepErrors++ })
		c.log.Debug("sweep decode failed", "address", protocol.FormatAddress(addr), "error", err)
		return
	}
	c.stats.Observe(func(s *Counters) { s.Sweeps++ })

	// Keep only the most recent sweep; calibration sampling is
	// click-driven and slow.
	select {
	case <-c.sweeps:
	default:
	}
	c.sweeps <- pair

	pos, err := c.calib.ComputePosition(pair)
	if err != nil {
		return
	}
	if c.reg.UpdatePosition(addr, app, registry.Position{Kind: registry.PositionLH2, X: pos.X, Y: pos.Y}, now) {
		c.stats.Observe(func(s *Counters) { s.Positions++ })
	}
	c.sendPayload(addr, app, protocol.Lh2Location{
		X: uint32(pos.X * 1e6),
		Y: uint32(pos.Y * 1e6),
		Z: uint32(pos.Z * 1e6),
	})
}

// sendPayload frames a packet for dst and queues it on the link. A full
// queue drops the packet rather than blocking the pipeline.
func (c *Controller) sendPayload(dst uint64, app protocol.Application, payload protocol.Payload) error {
	pkt := protocol.NewPacket(dst, c.cfg.Address, c.cfg.SwarmID, app, payload)
	frame := hdlc.Encode(pkt.Encode())
	select {
	case c.out <- frame:
		c.stats.Observe(func(s *Counters) { s.CommandsSent++ })
		return nil
	default:
		c.stats.Observe(func(s *Counters) { s.QueueDrops++ })
		return ErrQueueFull
	}
}

// application returns the known application of addr, defaulting to DotBot
// for bots we have not heard from.
func (c *Controller) application(addr uint64) protocol.Application {
	if b, ok := c.reg.Get(addr); ok {
		return b.Application
	}
	return protocol.ApplicationDotBot
}

// MoveRaw sends a raw motor command to addr.
func (c *Controller) MoveRaw(addr uint64, leftX, leftY, rightX, rightY int) error {
	cmd, err := protocol.NewCmdMoveRaw(leftX, leftY, rightX, rightY)
	if err != nil {
		return err
	}
	return c.sendPayload(addr, c.application(addr), cmd)
}

// RGBLed sends an LED color command to addr and remembers it in the
// registry when the bot is known.
func (c *Controller) RGBLed(addr uint64, red, green, blue uint8) error {
	if err := c.sendPayload(addr, c.application(addr), protocol.NewCmdRgbLed(red, green, blue)); err != nil {
		return err
	}
	if err := c.reg.SetLED(addr, registry.RGBColor{Red: red, Green: green, Blue: blue}); err != nil && !errors.Is(err, registry.ErrUnknownBot) {
		return err
	}
	return nil
}

// SetMode switches addr between manual and autonomous control.
func (c *Controller) SetMode(addr uint64, mode protocol.ControlModeType) error {
	if err := c.sendPayload(addr, c.application(addr), protocol.NewControlMode(mode)); err != nil {
		return err
	}
	if err := c.reg.SetMode(addr, mode); err != nil && !errors.Is(err, registry.ErrUnknownBot) {
		return err
	}
	return nil
}

// SetWaypoints uploads a waypoint route to addr, choosing the optical or
// satellite waypoint encoding from the position kind, and mirrors it into
// the registry.
func (c *Controller) SetWaypoints(addr uint64, waypoints []registry.Position, threshold uint8) error {
	if len(waypoints) == 0 {
		return errors.New("gateway: empty waypoint list")
	}

	var payload protocol.Payload
	switch waypoints[0].Kind {
	case registry.PositionGPS:
		points := make([]protocol.GpsPosition, len(waypoints))
		for i, w := range waypoints {
			points[i] = protocol.GpsPosition{
				Latitude:  int32(w.X * 1e6),
				Longitude: int32(w.Y * 1e6),
			}
		}
		p, err := protocol.NewGpsWaypoints(threshold, points)
		if err != nil {
			return err
		}
		payload = p
	default:
		points := make([]protocol.Lh2Location, len(waypoints))
		for i, w := range waypoints {
			points[i] = protocol.Lh2Location{
				X: uint32(w.X * 1e6),
				Y: uint32(w.Y * 1e6),
			}
		}
		p, err := protocol.NewLh2Waypoints(threshold, points)
		if err != nil {
			return err
		}
		payload = p
	}

	if err := c.sendPayload(addr, c.application(addr), payload); err != nil {
		return err
	}
	return c.reg.SetWaypoints(addr, waypoints, threshold)
}

// ClearPositionHistory tells addr to forget its trail and empties the
// registry copy.
func (c *Controller) ClearPositionHistory(addr uint64) error {
	if err := c.sendPayload(addr, c.application(addr), protocol.PositionHistoryClear{}); err != nil {
		return err
	}
	return c.reg.ClearPositionHistory(addr)
}

// CalibrationState returns the calibration state machine's state.
func (c *Controller) CalibrationState() lighthouse.State {
	return c.calib.State()
}

// StartCalibration begins (or restarts) the calibration workflow.
func (c *Controller) StartCalibration() {
	c.calib.Start()
	c.hub.Publish(Event{Kind: EventCalibration, CalibrationState: c.calib.State()})
}

// AddCalibrationPoint samples the most recently decoded sweep against
// reference location index. A bot must be sitting on the reference spot
// and sweeping when this is called.
func (c *Controller) AddCalibrationPoint(index int) error {
	var pair lighthouse.AnglePair
	select {
	case pair = <-c.sweeps:
	default:
		return ErrNoSweep
	}
	if err := c.calib.AddReferencePoint(index, pair); err != nil {
		return err
	}
	c.hub.Publish(Event{Kind: EventCalibration, CalibrationState: c.calib.State()})
	return nil
}

// ApplyCalibration fits and freezes the angle-to-world transform.
func (c *Controller) ApplyCalibration() error {
	if err := c.calib.Apply(); err != nil {
		return err
	}
	c.hub.Publish(Event{Kind: EventCalibration, CalibrationState: c.calib.State()})
	return nil
}
