// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

// Package server exposes the controller over HTTP: a small JSON API for
// fleet state and commands, and a websocket endpoint streaming controller
// events to dashboards.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dotbot-org/botgate/pkg/gateway"
	"github.com/dotbot-org/botgate/pkg/protocol"
	"github.com/dotbot-org/botgate/pkg/registry"
)

const shutdownTimeout = 5 * time.Second

// Server serves the controller API on one listen address.
type Server struct {
	addr     string
	ctrl     *gateway.Controller
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// New wires a server around a controller. The server holds no state of
// its own; everything is read from and written through the controller.
func New(addr string, ctrl *gateway.Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr: addr,
		ctrl: ctrl,
		log:  logger.With("component", "server"),
		upgrader: websocket.Upgrader{
			// Dashboards are served from anywhere on the LAN.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /controller/bots", s.handleListBots)
	mux.HandleFunc("GET /controller/bots/{address}", s.handleGetBot)
	mux.HandleFunc("PUT /controller/bots/{address}/move_raw", s.handleMoveRaw)
	mux.HandleFunc("PUT /controller/bots/{address}/rgb_led", s.handleRgbLed)
	mux.HandleFunc("PUT /controller/bots/{address}/mode", s.handleMode)
	mux.HandleFunc("PUT /controller/bots/{address}/waypoints", s.handleWaypoints)
	mux.HandleFunc("DELETE /controller/bots/{address}/position_history", s.handleClearHistory)

	mux.HandleFunc("GET /controller/lh2/calibration", s.handleCalibrationState)
	mux.HandleFunc("POST /controller/lh2/calibration/start", s.handleCalibrationStart)
	mux.HandleFunc("PUT /controller/lh2/calibration/{index}", s.handleCalibrationPoint)
	mux.HandleFunc("POST /controller/lh2/calibration/apply", s.handleCalibrationApply)

	mux.HandleFunc("GET /controller/stats", s.handleStats)
	mux.HandleFunc("GET /controller/ws/events", s.handleEvents)

	return mux
}

// Run serves until ctx is cancelled, then drains with a short grace
// period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("listening", "address", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// pathAddress parses the {address} path segment.
func pathAddress(r *http.Request) (uint64, error) {
	return protocol.ParseAddress(r.PathValue("address"))
}

func readBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// commandStatus maps controller command errors onto HTTP statuses.
func commandStatus(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, protocol.ErrMoveValueOutOfRange),
		errors.Is(err, protocol.ErrTooManyWaypoints),
		errors.Is(err, registry.ErrTooManyWaypoints):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, registry.ErrUnknownBot):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, gateway.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleListBots(w http.ResponseWriter, _ *http.Request) {
	bots := s.ctrl.Registry().List()
	views := make([]botView, len(bots))
	for i, b := range bots {
		views[i] = newBotView(b)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetBot(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	b, ok := s.ctrl.Registry().Get(addr)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown bot")
		return
	}
	writeJSON(w, http.StatusOK, newBotView(b))
}

func (s *Server) handleMoveRaw(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	var req moveRawRequest
	if !readBody(w, r, &req) {
		return
	}
	commandStatus(w, s.ctrl.MoveRaw(addr, req.LeftX, req.LeftY, req.RightX, req.RightY))
}

func (s *Server) handleRgbLed(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	var req rgbLedRequest
	if !readBody(w, r, &req) {
		return
	}
	commandStatus(w, s.ctrl.RGBLed(addr, req.Red, req.Green, req.Blue))
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	var req modeRequest
	if !readBody(w, r, &req) {
		return
	}
	commandStatus(w, s.ctrl.SetMode(addr, protocol.ControlModeType(req.Mode)))
}

func (s *Server) handleWaypoints(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	var req waypointsRequest
	if !readBody(w, r, &req) {
		return
	}
	waypoints := make([]registry.Position, len(req.Waypoints))
	for i, v := range req.Waypoints {
		waypoints[i] = v.toPosition()
	}
	commandStatus(w, s.ctrl.SetWaypoints(addr, waypoints, req.Threshold))
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	commandStatus(w, s.ctrl.ClearPositionHistory(addr))
}

func (s *Server) handleCalibrationState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, calibrationView{State: s.ctrl.CalibrationState().String()})
}

func (s *Server) handleCalibrationStart(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.StartCalibration()
	writeJSON(w, http.StatusOK, calibrationView{State: s.ctrl.CalibrationState().String()})
}

func (s *Server) handleCalibrationPoint(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reference index")
		return
	}
	if err := s.ctrl.AddCalibrationPoint(index); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, calibrationView{State: s.ctrl.CalibrationState().String()})
}

func (s *Server) handleCalibrationApply(w http.ResponseWriter, _ *http.Request) {
	if err := s.ctrl.ApplyCalibration(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, calibrationView{State: s.ctrl.CalibrationState().String()})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Stats().Snapshot())
}

// handleEvents upgrades to a websocket and streams controller events as
// JSON text messages until the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, cancel := s.ctrl.Hub().Subscribe(64)
	defer cancel()

	// Drain client frames so close handshakes and pings are processed.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-clientGone:
			return
		case <-r.Context().Done():
			return
		case e := <-events:
			if err := conn.WriteJSON(newEventView(e)); err != nil {
				s.log.Debug("event stream closed", "error", err)
				return
			}
		}
	}
}
