package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WilhelmWidlund/CS487-Project/sim"
)

var testEpoch = time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *sim.Simulator) {
	t.Helper()
	s, err := sim.NewSimulator(sim.DefaultPlantConfig().WithBreakProbability(0), testEpoch)
	require.NoError(t, err)
	return New(s), s
}

func do(t *testing.T, srv *Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return w.Code, out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	code, body := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
}

func TestGetStation_ListsTanksInProcessingOrder(t *testing.T) {
	srv, s := newTestServer(t)
	s.Tick(1)

	code, body := do(t, srv, http.MethodGet, "/api/v1/station", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, sim.DefaultStation, body["station"])
	assert.Equal(t, s.RunID.String(), body["run_id"])
	assert.Equal(t, 1.0, body["clock"])
	assert.Equal(t, []any{"cyan", "magenta", "yellow", "black", "white", "mixer"}, body["tanks"])
}

func TestGetTank_Snapshot(t *testing.T) {
	srv, _ := newTestServer(t)
	code, body := do(t, srv, http.MethodGet, "/api/v1/tanks/cyan", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cyan", body["name"])
	assert.Equal(t, 1.0, body["level"])
	assert.Equal(t, "#00ffff", strings.ToLower(body["color"].(string)))
}

func TestGetTank_Unknown_404(t *testing.T) {
	srv, _ := newTestServer(t)
	code, body := do(t, srv, http.MethodGet, "/api/v1/tanks/orange", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body["error"], "orange")

	code, _ = do(t, srv, http.MethodPost, "/api/v1/tanks/orange/flush", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGetAttribute(t *testing.T) {
	srv, _ := newTestServer(t)
	tests := []struct {
		attr string
		want any
	}{
		{"level", 1.0},
		{"flow", 0.0},
		{"valve", 0.0},
		{"very_low", false},
		{"very_high", true},
		{"high", true},
		{"alarms", ""},
	}
	for _, tt := range tests {
		t.Run(tt.attr, func(t *testing.T) {
			code, body := do(t, srv, http.MethodGet, "/api/v1/tanks/cyan/"+tt.attr, "")
			require.Equal(t, http.StatusOK, code)
			assert.Equal(t, tt.attr, body["attribute"])
			assert.Equal(t, tt.want, body["value"])
		})
	}

	code, _ := do(t, srv, http.MethodGet, "/api/v1/tanks/cyan/pressure", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSetValve_ThenTick_Drains(t *testing.T) {
	srv, s := newTestServer(t)

	// GIVEN the cyan valve opened over HTTP
	code, body := do(t, srv, http.MethodPut, "/api/v1/tanks/cyan/valve", `{"value": 1}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["valve"])

	// WHEN the plant ticks once
	s.Tick(1)

	// THEN cyan dropped by 2 L of its 100 L
	_, body = do(t, srv, http.MethodGet, "/api/v1/tanks/cyan/level", "")
	assert.InDelta(t, 0.98, body["value"], 1e-9)
}

func TestSetValve_BadBody_400(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, body := range []string{`{}`, `{"value": "open"}`, `not json`} {
		code, _ := do(t, srv, http.MethodPut, "/api/v1/tanks/cyan/valve", body)
		assert.Equal(t, http.StatusBadRequest, code, "body %q", body)
	}
}

func TestFillAndFlush_ReturnLevel(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := do(t, srv, http.MethodPost, "/api/v1/tanks/cyan/flush", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0.0, body["level"])

	code, body = do(t, srv, http.MethodPost, "/api/v1/tanks/cyan/fill", `{"level": 0.4}`)
	require.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 0.4, body["level"], 1e-9)

	// no body fills completely
	code, body = do(t, srv, http.MethodPost, "/api/v1/tanks/cyan/fill", "")
	require.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 1.0, body["level"], 1e-9)

	code, _ = do(t, srv, http.MethodPost, "/api/v1/tanks/cyan/fill", `{"level": "full"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBreakChannel_MakesActuatorInert(t *testing.T) {
	srv, s := newTestServer(t)

	// GIVEN the cyan valve actuator broken by a drill
	code, body := do(t, srv, http.MethodPost, "/api/v1/tanks/cyan/faults", `{"channel": "valve_actuator"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"valve_actuator"}, body["broken"])

	// WHEN the valve is commanded open and the plant ticks
	code, _ = do(t, srv, http.MethodPut, "/api/v1/tanks/cyan/valve", `{"value": 1}`)
	require.Equal(t, http.StatusOK, code)
	s.Tick(1)

	// THEN no paint moved
	cyan, ok := s.Tank("cyan")
	require.True(t, ok)
	assert.Equal(t, []sim.FaultChannel{sim.FaultValveActuator}, cyan.Broken())
	assert.InDelta(t, 100.0, cyan.Mixture().Volume(), 1e-9)
}

func TestBreakChannel_UnknownChannel_400(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, body := range []string{`{"channel": "pump"}`, `{}`, `nope`} {
		code, _ := do(t, srv, http.MethodPost, "/api/v1/tanks/cyan/faults", body)
		assert.Equal(t, http.StatusBadRequest, code, "body %q", body)
	}
	code, _ := do(t, srv, http.MethodPost, "/api/v1/tanks/orange/faults", `{"channel": "level_sensor"}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRequestID_Echoed(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestWebSocket_ReceivesInitialAndTickFrames(t *testing.T) {
	srv, s := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer srv.Hub().Close()

	// GIVEN a connected WebSocket client
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return srv.Hub().Len() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, 0.0, frame.Clock)
	require.Len(t, frame.Tanks, 6)

	// WHEN the plant ticks
	s.Tick(1)

	// THEN a frame with the new clock arrives
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, 1.0, frame.Clock)
	assert.Equal(t, sim.DefaultStation, frame.Station)
	assert.Equal(t, "mixer", frame.Tanks[5].Name)
}

func TestWebSocket_DisconnectUnregisters(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.Hub().Len() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return srv.Hub().Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastDropsForLaggingClient(t *testing.T) {
	h := NewHub()
	client := &WSClient{Send: make(chan []byte, 1), Done: make(chan struct{})}
	h.clients[client.ID] = client

	// WHEN two frames are broadcast to a client that reads none
	h.Broadcast(map[string]int{"n": 1})
	h.Broadcast(map[string]int{"n": 2})

	// THEN only the first is queued and Broadcast did not block
	require.Len(t, client.Send, 1)
	assert.JSONEq(t, `{"n":1}`, string(<-client.Send))
}
