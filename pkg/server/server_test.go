// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotbot-org/botgate/pkg/gateway"
	"github.com/dotbot-org/botgate/pkg/protocol"
	"github.com/dotbot-org/botgate/pkg/registry"
)

const botAddr uint64 = 0x9903EF26257FEB31

func newTestServer(t *testing.T) (*gateway.Controller, *httptest.Server) {
	t.Helper()
	ctrl := gateway.New(gateway.Config{}, gateway.NewMockConnection(), nil)
	ts := httptest.NewServer(New("", ctrl, nil).Handler())
	t.Cleanup(ts.Close)
	return ctrl, ts
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_ListBots(t *testing.T) {
	ctrl, ts := newTestServer(t)

	resp := doJSON(t, http.MethodGet, ts.URL+"/controller/bots", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var empty []botView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&empty))
	assert.Empty(t, empty)

	ctrl.Registry().Touch(botAddr, protocol.ApplicationDotBot, time.Now())

	resp = doJSON(t, http.MethodGet, ts.URL+"/controller/bots", nil)
	var bots []botView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bots))
	require.Len(t, bots, 1)
	assert.Equal(t, "9903ef26257feb31", bots[0].Address)
	assert.Equal(t, "alive", bots[0].Status)
	assert.Equal(t, "DotBot", bots[0].Application)
}

func TestServer_GetBot(t *testing.T) {
	ctrl, ts := newTestServer(t)
	ctrl.Registry().UpdatePosition(botAddr, protocol.ApplicationDotBot,
		registry.Position{Kind: registry.PositionLH2, X: 0.25, Y: 0.75}, time.Now())

	resp := doJSON(t, http.MethodGet, ts.URL+"/controller/bots/9903ef26257feb31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bot botView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bot))
	require.NotNil(t, bot.Position)
	assert.Equal(t, "lh2", bot.Position.Kind)
	assert.InDelta(t, 0.25, bot.Position.X, 1e-9)

	resp = doJSON(t, http.MethodGet, ts.URL+"/controller/bots/0000000000000bad", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/controller/bots/not-hex", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_MoveRaw(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doJSON(t, http.MethodPut, ts.URL+"/controller/bots/9903ef26257feb31/move_raw",
		moveRawRequest{LeftY: 80, RightY: 80})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, ts.URL+"/controller/bots/9903ef26257feb31/move_raw",
		moveRawRequest{LeftY: 500})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestServer_Waypoints(t *testing.T) {
	ctrl, ts := newTestServer(t)
	ctrl.Registry().Touch(botAddr, protocol.ApplicationDotBot, time.Now())

	resp := doJSON(t, http.MethodPut, ts.URL+"/controller/bots/9903ef26257feb31/waypoints",
		waypointsRequest{
			Threshold: 10,
			Waypoints: []positionView{{Kind: "lh2", X: 0.1, Y: 0.1}, {Kind: "lh2", X: 0.9, Y: 0.9}},
		})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	b, _ := ctrl.Registry().Get(botAddr)
	assert.Len(t, b.Waypoints, 2)

	long := waypointsRequest{Waypoints: make([]positionView, protocol.MaxWaypoints+1)}
	for i := range long.Waypoints {
		long.Waypoints[i] = positionView{Kind: "lh2"}
	}
	resp = doJSON(t, http.MethodPut, ts.URL+"/controller/bots/9903ef26257feb31/waypoints", long)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestServer_Calibration(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doJSON(t, http.MethodGet, ts.URL+"/controller/lh2/calibration", nil)
	var cal calibrationView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cal))
	assert.Equal(t, "unknown", cal.State)

	resp = doJSON(t, http.MethodPost, ts.URL+"/controller/lh2/calibration/start", nil)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cal))
	assert.Equal(t, "running", cal.State)

	// No sweep has been decoded yet, so sampling must fail.
	resp = doJSON(t, http.MethodPut, ts.URL+"/controller/lh2/calibration/0", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Not every reference point is sampled, so apply must fail too.
	resp = doJSON(t, http.MethodPost, ts.URL+"/controller/lh2/calibration/apply", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServer_Stats(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doJSON(t, http.MethodGet, ts.URL+"/controller/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats gateway.Counters
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Zero(t, stats.Frames)
}

func TestServer_EventStream(t *testing.T) {
	ctrl, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/controller/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The handler subscribes just after the handshake completes; give it a
	// moment before producing the event.
	time.Sleep(100 * time.Millisecond)
	ctrl.Registry().Touch(botAddr, protocol.ApplicationDotBot, time.Now())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev eventView
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "bot_created", ev.Type)
	assert.Equal(t, "9903ef26257feb31", ev.Address)
}
