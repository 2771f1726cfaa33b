package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"office-relay/hub"
	"office-relay/modules/attendance"
	"office-relay/modules/chat"
	"office-relay/observability"
	"office-relay/relay"
	"office-relay/server"
)

// newRelayServer assembles the full relay stack behind an httptest server,
// the same wiring as the real binary minus the supervisor.
func newRelayServer(t *testing.T) (*httptest.Server, *relay.SessionStore) {
	t.Helper()
	log := slog.Default()

	monitor := observability.NewMonitor(log, time.Minute)
	h := hub.NewHub(log, monitor, 64, 16)
	timers := relay.NewSessionStore()
	monitor.BindGauges(func() (int, int, int) {
		clients, rooms := h.Gauges()
		return clients, rooms, timers.Len()
	})

	chat.Mount(log, h)
	attendance.Mount(log, h, timers)
	translator := relay.NewTranslator(log, h, timers)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = h.Run(ctx) }()

	ts := httptest.NewServer(server.New(log, translator, h, monitor, 1<<20).Router())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return ts, timers
}

func postEmit(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/emit", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestEmit_ValidEventSucceeds(t *testing.T) {
	req := require.New(t)
	ts, timers := newRelayServer(t)

	resp := postEmit(t, ts, `{"event":"attendance:checkin","data":{"employee_id":"emp42","baseSeconds":60}}`)

	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal(true, decodeBody(t, resp)["success"])

	rec, ok := timers.Get("EMP42")
	req.True(ok)
	req.True(rec.IsRunning)
	req.EqualValues(60, rec.BaseSeconds)
}

func TestEmit_MissingEventIsRejected(t *testing.T) {
	req := require.New(t)
	ts, _ := newRelayServer(t)

	resp := postEmit(t, ts, `{"data":{"x":1}}`)

	req.Equal(http.StatusBadRequest, resp.StatusCode)
	req.Equal("event_required", decodeBody(t, resp)["error"])
}

func TestEmit_UnreadableBodyIsRejected(t *testing.T) {
	req := require.New(t)
	ts, _ := newRelayServer(t)

	resp := postEmit(t, ts, `{not json`)

	req.Equal(http.StatusBadRequest, resp.StatusCode)
	req.Equal("event_required", decodeBody(t, resp)["error"])
}

func TestEmit_MalformedPayloadIsInternalError(t *testing.T) {
	req := require.New(t)
	ts, _ := newRelayServer(t)

	resp := postEmit(t, ts, `{"event":"attendance:checkin","data":{"employee_id":{}}}`)

	req.Equal(http.StatusInternalServerError, resp.StatusCode)
	req.Equal("internal_error", decodeBody(t, resp)["error"])
}

func TestEmit_RoomlessEventStillSucceeds(t *testing.T) {
	req := require.New(t)
	ts, _ := newRelayServer(t)

	// Fire-and-forget: nobody joined this conversation's room
	resp := postEmit(t, ts, `{"event":"new_message","data":{"conversation_id":"c42"}}`)

	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal(true, decodeBody(t, resp)["success"])
}

func TestCORS_PreflightReflectsOrigin(t *testing.T) {
	req := require.New(t)
	ts, _ := newRelayServer(t)

	httpReq, err := http.NewRequest(http.MethodOptions, ts.URL+"/emit", nil)
	req.NoError(err)
	httpReq.Header.Set("Origin", "http://frontend.local")

	resp, err := http.DefaultClient.Do(httpReq)
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusNoContent, resp.StatusCode)
	req.Equal("http://frontend.local", resp.Header.Get("Access-Control-Allow-Origin"))
	req.Equal("true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestHealthz(t *testing.T) {
	req := require.New(t)
	ts, _ := newRelayServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	req.NoError(err)

	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("ok", decodeBody(t, resp)["status"])
}

func TestStats_ReportsRelayedEvents(t *testing.T) {
	req := require.New(t)
	ts, _ := newRelayServer(t)

	resp := postEmit(t, ts, `{"event":"message_edited","data":{}}`)
	req.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/stats")
	req.NoError(err)

	req.Equal(http.StatusOK, resp.StatusCode)
	stats := decodeBody(t, resp)
	req.EqualValues(1, stats["events_relayed"])
	req.Contains(stats, "connected_clients")
	req.Contains(stats, "active_timers")
}

type wireFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readWire(t *testing.T, conn *websocket.Conn) wireFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame wireFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestWebSocket_AttendanceFlow(t *testing.T) {
	req := require.New(t)
	ts, _ := newRelayServer(t)

	// Given a connected client subscribed to an employee's timer room
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	req.NoError(err)
	defer conn.Close()

	req.NoError(conn.WriteJSON(map[string]any{
		"action": "attendance:subscribe",
		"data":   map[string]string{"employee_id": "emp42"},
	}))

	// Then the subscription is acknowledged with a snapshot, which also
	// guarantees the room join happened before the emit below
	snapshot := readWire(t, conn)
	req.Equal("attendance:snapshot", snapshot.Event)

	// When the backend relays a check-in for that employee
	resp := postEmit(t, ts, `{"event":"attendance:checkin","data":{"employee_id":"EMP42","checkinTime":"09:00","checkinTimestamp":1000}}`)
	req.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Then the client receives the started event in its room
	started := readWire(t, conn)
	req.Equal("attendance:started", started.Event)

	var payload struct {
		EmployeeID       string `json:"employee_id"`
		CheckinTimestamp int64  `json:"checkinTimestamp"`
	}
	req.NoError(json.Unmarshal(started.Data, &payload))
	req.Equal("EMP42", payload.EmployeeID)
	req.EqualValues(1000, payload.CheckinTimestamp)
}

func TestWebSocket_ConversationRoomScoping(t *testing.T) {
	req := require.New(t)
	ts, _ := newRelayServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	dial := func() *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		req.NoError(err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	member := dial()
	outsider := dial()

	req.NoError(member.WriteJSON(map[string]any{
		"action": "join_conversation",
		"data":   map[string]string{"conversation_id": "c42"},
	}))

	// The read pump handles frames in order, so the snapshot reply to this
	// subscribe acknowledges that the join above has been processed
	req.NoError(member.WriteJSON(map[string]any{
		"action": "attendance:subscribe",
		"data":   map[string]string{"employee_id": "emp1"},
	}))
	ack := readWire(t, member)
	req.Equal("attendance:snapshot", ack.Event)

	resp := postEmit(t, ts, `{"event":"new_message","data":{"conversation_id":"c42","body":"hello"}}`)
	req.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	frame := readWire(t, member)
	req.Equal("new_message", frame.Event)

	req.NoError(outsider.SetReadDeadline(time.Now().Add(200 * time.Millisecond)))
	var stray wireFrame
	req.Error(outsider.ReadJSON(&stray))
}
