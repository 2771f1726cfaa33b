// Package attendance handles the client side of live attendance timers:
// subscribing to an employee's timer room and answering point-in-time
// status queries from the session store.
package attendance

import (
	"encoding/json"
	"log/slog"
	"time"

	"office-relay/contract"
	"office-relay/domain"
	"office-relay/domain/event"
	"office-relay/hub"
)

type subscribePayload struct {
	EmployeeID domain.ID `json:"employee_id"`
}

// Module answers attendance actions against the live timer store.
type Module struct {
	log    *slog.Logger
	hub    *hub.Hub
	timers contract.TimerReader
	now    func() time.Time
}

// Mount wires the attendance actions onto the hub.
func Mount(log *slog.Logger, h *hub.Hub, timers contract.TimerReader) *Module {
	m := &Module{log: log, hub: h, timers: timers, now: time.Now}

	h.RegisterAction("attendance:subscribe", m.subscribe)
	h.RegisterAction("attendance:unsubscribe", m.unsubscribe)
	h.RegisterAction("attendance:status", m.status)
	return m
}

// subscribe joins the employee's timer room and immediately pushes a
// snapshot so the client renders current state without waiting for the
// next relayed event.
func (m *Module) subscribe(c *hub.Client, data json.RawMessage) {
	uid, ok := m.employeeID(c, data)
	if !ok {
		return
	}
	m.hub.Join(c, domain.AttendanceRoom(uid))
	c.Push(event.AttendanceSnapshot, m.snapshot(uid))
}

func (m *Module) unsubscribe(c *hub.Client, data json.RawMessage) {
	uid, ok := m.employeeID(c, data)
	if !ok {
		return
	}
	m.hub.Leave(c, domain.AttendanceRoom(uid))
}

// status replies with a snapshot without touching room membership.
func (m *Module) status(c *hub.Client, data json.RawMessage) {
	uid, ok := m.employeeID(c, data)
	if !ok {
		return
	}
	c.Push(event.AttendanceSnapshot, m.snapshot(uid))
}

func (m *Module) employeeID(c *hub.Client, data json.RawMessage) (string, bool) {
	var p subscribePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", false
	}
	uid := domain.NormalizeEmployeeID(p.EmployeeID.String())
	if uid == "" {
		m.log.Debug("Attendance action without employee_id ignored", "client_id", c.ID)
		return "", false
	}
	return uid, true
}

// snapshot reports the live timer, or a not-running snapshot when the
// employee has none.
func (m *Module) snapshot(uid string) event.TimerSnapshot {
	snap := event.TimerSnapshot{
		EmployeeID: uid,
		ServerNow:  m.now().UnixMilli(),
	}
	rec, ok := m.timers.Get(uid)
	if !ok {
		return snap
	}
	snap.IsRunning = rec.IsRunning
	snap.CheckinTime = rec.CheckinTime
	snap.CheckinTimestamp = rec.CheckinTimestamp
	snap.BaseSeconds = rec.BaseSeconds
	snap.LastStatus = rec.LastStatus
	return snap
}
