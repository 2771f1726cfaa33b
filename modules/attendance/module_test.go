package attendance

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"office-relay/domain"
	"office-relay/domain/event"
	"office-relay/hub"
	"office-relay/mocks"
	"office-relay/observability"
)

const frozenMillis int64 = 1_700_000_000_000

func newTestModule(t *testing.T) (*Module, *hub.Hub, *hub.Client, *mocks.MockTimerReader) {
	log := slog.Default()
	ctrl := gomock.NewController(t)
	timers := mocks.NewMockTimerReader(ctrl)

	h := hub.NewHub(log, observability.NewMonitor(log, time.Minute), 16, 8)
	m := Mount(log, h, timers)
	m.now = func() time.Time { return time.UnixMilli(frozenMillis) }

	return m, h, hub.NewClient(h, nil), timers
}

func readFrame(t *testing.T, c *hub.Client) hub.Frame {
	t.Helper()
	select {
	case frame := <-c.Send:
		return frame
	case <-time.After(time.Second):
		t.Fatal("no frame pushed to client")
		return hub.Frame{}
	}
}

func TestSubscribe_PushesRunningSnapshot(t *testing.T) {
	req := require.New(t)
	m, _, c, timers := newTestModule(t)

	// Given a live timer for the employee
	timers.EXPECT().Get("EMP42").Return(domain.SessionRecord{
		IsRunning:        true,
		CheckinTime:      "09:00",
		CheckinTimestamp: 1000,
		BaseSeconds:      300,
		LastStatus:       domain.StatusActive,
	}, true)

	// When the client subscribes with an unnormalized id
	m.subscribe(c, json.RawMessage(`{"employee_id":" emp42 "}`))

	// Then it immediately receives the current state
	frame := readFrame(t, c)
	req.Equal(event.AttendanceSnapshot, frame.Event)
	snap, ok := frame.Data.(event.TimerSnapshot)
	req.True(ok)
	req.Equal("EMP42", snap.EmployeeID)
	req.True(snap.IsRunning)
	req.Equal("09:00", snap.CheckinTime)
	req.EqualValues(300, snap.BaseSeconds)
	req.Equal(frozenMillis, snap.ServerNow)
}

func TestStatus_WithoutTimerReportsNotRunning(t *testing.T) {
	req := require.New(t)
	m, _, c, timers := newTestModule(t)

	timers.EXPECT().Get("EMP42").Return(domain.SessionRecord{}, false)

	m.status(c, json.RawMessage(`{"employee_id":"emp42"}`))

	frame := readFrame(t, c)
	req.Equal(event.AttendanceSnapshot, frame.Event)
	snap, ok := frame.Data.(event.TimerSnapshot)
	req.True(ok)
	req.False(snap.IsRunning)
	req.Equal("EMP42", snap.EmployeeID)
	req.Equal(frozenMillis, snap.ServerNow)
}

func TestSubscribe_WithoutEmployeeIsIgnored(t *testing.T) {
	req := require.New(t)
	m, _, c, _ := newTestModule(t)

	m.subscribe(c, json.RawMessage(`{}`))
	m.subscribe(c, json.RawMessage(`{"employee_id":"  "}`))
	m.subscribe(c, json.RawMessage(`not json`))

	select {
	case <-c.Send:
		req.Fail("no snapshot should be pushed without an employee id")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe_LeavesTheTimerRoom(t *testing.T) {
	req := require.New(t)
	m, h, c, timers := newTestModule(t)
	timers.EXPECT().Get("EMP42").Return(domain.SessionRecord{}, false)

	// attach is implicit in production via ServeWS; Join only needs the
	// client to exist.
	m.subscribe(c, json.RawMessage(`{"employee_id":"emp42"}`))
	_, rooms := h.Gauges()
	req.Equal(1, rooms)

	m.unsubscribe(c, json.RawMessage(`{"employee_id":"EMP42"}`))
	_, rooms = h.Gauges()
	req.Equal(0, rooms)
}
