// Package domain contains core concepts of the relay.
// This file defines attendance-timer state and the room naming rules.
// No runtime, network, or UI logic should be added here.
package domain

import "strings"

// StatusActive is the status code stamped on a freshly relayed check-in.
const StatusActive = "A"

const attendanceRoomPrefix = "attendance:"

// NormalizeEmployeeID trims surrounding whitespace and upper-cases the id.
// It is applied everywhere an employee id becomes a room or store key, so
// a check-in for "emp001" and a check-out for " EMP001 " resolve to the
// same timer.
func NormalizeEmployeeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// AttendanceRoom returns the per-employee live-timer room name.
func AttendanceRoom(employeeID string) string {
	return attendanceRoomPrefix + NormalizeEmployeeID(employeeID)
}

// SessionRecord is the transient live-timer state of one employee,
// valid between a relayed check-in and the matching check-out.
// It is a cache of what the backend already decided, never a system of
// record: a relay restart wipes it, and a checkout that is never relayed
// leaves the record in memory until then.
type SessionRecord struct {
	IsRunning        bool   `json:"isRunning"`
	CheckinTime      string `json:"checkinTime,omitempty"`
	CheckinTimestamp int64  `json:"checkinTimestamp"`
	BaseSeconds      int64  `json:"baseSeconds"`
	LastStatus       string `json:"lastStatus"`
}
