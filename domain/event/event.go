// Package event defines the wire names and payload shapes relayed between
// the backend bridge and connected clients. Inbound names select a dispatch
// row; some rows re-emit under a different name because the front-end
// listens to the unified form.
package event

// Inbound event names accepted on the HTTP bridge.
const (
	NewMessage             = "new_message"
	AttendanceCheckin      = "attendance:checkin"
	AttendanceCheckout     = "attendance:checkout"
	AttendanceStatusUpdate = "attendance:status-update"
	ConversationCreated    = "conversation_created"
	GroupAddMembers        = "group_add_members"
	GroupRemoveMembers     = "group_remove_members"
	GroupRenamed           = "group_renamed"
	GroupDeleted           = "group_deleted"
	DirectLeft             = "direct_left"
	MessageEdited          = "message_edited"
	MessageDeleted         = "message_deleted"
)

// Re-emitted (client-facing) event names.
const (
	AttendanceStarted    = "attendance:started"
	AttendanceStopped    = "attendance:stopped"
	AttendanceSnapshot   = "attendance:snapshot"
	GroupMembersAdded    = "group_members_added"
	GroupMembersRemoved  = "group_members_removed"
	ConversationDeleted  = "conversation_deleted"
	UserLeftConversation = "user_left_conversation"
)

// TimerStarted is pushed to attendance:<id> when a check-in is relayed.
// Timestamps are epoch milliseconds; ServerNow lets clients offset their
// local clock against the relay's.
type TimerStarted struct {
	EmployeeID       string `json:"employee_id"`
	CheckinTime      string `json:"checkinTime,omitempty"`
	CheckinTimestamp int64  `json:"checkinTimestamp"`
	BaseSeconds      int64  `json:"baseSeconds"`
	ServerNow        int64  `json:"serverNow"`
}

// TimerStopped is pushed to attendance:<id> when a check-out is relayed.
// CheckoutTime, TotalSeconds and Status are passed through from the
// backend untouched.
type TimerStopped struct {
	EmployeeID   string `json:"employee_id"`
	CheckoutTime string `json:"checkoutTime,omitempty"`
	TotalSeconds *int64 `json:"totalSeconds,omitempty"`
	Status       string `json:"status,omitempty"`
	ServerNow    int64  `json:"serverNow"`
}

// TimerStatusUpdated mirrors a backend-side status change (e.g. the
// scheduler flipping someone to half-day) without touching the live timer.
type TimerStatusUpdated struct {
	EmployeeID   string `json:"employee_id"`
	TotalSeconds *int64 `json:"totalSeconds,omitempty"`
	Status       string `json:"status,omitempty"`
	AutoUpdated  bool   `json:"autoUpdated"`
	ServerNow    int64  `json:"serverNow"`
}

// TimerSnapshot is the reply to an attendance subscription or status query:
// the current live-timer state as the relay knows it.
type TimerSnapshot struct {
	EmployeeID       string `json:"employee_id"`
	IsRunning        bool   `json:"isRunning"`
	CheckinTime      string `json:"checkinTime,omitempty"`
	CheckinTimestamp int64  `json:"checkinTimestamp,omitempty"`
	BaseSeconds      int64  `json:"baseSeconds"`
	LastStatus       string `json:"lastStatus,omitempty"`
	ServerNow        int64  `json:"serverNow"`
}
