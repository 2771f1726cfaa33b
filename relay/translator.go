// Package relay implements the ingress side of the event relay: the
// dispatcher that turns backend state-change notifications into room-scoped
// fan-outs, and the in-memory session store it maintains along the way.
package relay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"office-relay/contract"
	"office-relay/domain"
	"office-relay/domain/event"
)

// Translator routes relay envelopes through a closed dispatch table.
// Each row computes the destination room(s), optionally mutates the live
// timers, and re-emits the event, sometimes under the unified name the
// front-end listens to. Event names outside the table are not rejected:
// they broadcast unchanged, so producers can add event kinds without a
// relay deploy.
type Translator struct {
	log     *slog.Logger
	emitter contract.Emitter
	timers  *SessionStore
	now     func() time.Time
}

func NewTranslator(log *slog.Logger, emitter contract.Emitter, timers *SessionStore) *Translator {
	return &Translator{log: log, emitter: emitter, timers: timers, now: time.Now}
}

// Relay validates the envelope and dispatches it. Returning nil means the
// event was handed to the transport's publish queue; delivery to individual
// connections is never awaited.
func (t *Translator) Relay(env Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}

	t.log.Info("Relaying event", "event", env.Event, "data", string(env.Data))

	data := env.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	switch env.Event {
	case event.NewMessage:
		t.emitToConversation(event.NewMessage, data)
	case event.AttendanceCheckin:
		return t.relayCheckin(data)
	case event.AttendanceCheckout:
		return t.relayCheckout(data)
	case event.AttendanceStatusUpdate:
		return t.relayStatusUpdate(data)
	case event.ConversationCreated:
		t.relayConversationCreated(data)
	case event.GroupAddMembers:
		// Unified event name expected by the front-end.
		t.emitToConversation(event.GroupMembersAdded, data)
	case event.GroupRemoveMembers, event.GroupMembersRemoved:
		t.emitToConversation(event.GroupMembersRemoved, data)
	case event.GroupRenamed:
		t.emitToConversation(event.GroupRenamed, data)
	case event.GroupDeleted:
		// The front-end listens to conversation_deleted.
		t.emitToConversation(event.ConversationDeleted, data)
	case event.DirectLeft:
		t.emitToConversation(event.UserLeftConversation, data)
	case event.MessageEdited, event.MessageDeleted:
		t.emitter.EmitToAll(env.Event, data)
	default:
		// Unknown but valid: forward the raw event name and payload to
		// everyone so future producers keep working.
		t.emitter.EmitToAll(env.Event, data)
	}
	return nil
}

// conversationHint is the routing peek into a messaging payload. The
// payload itself stays opaque and is re-emitted verbatim.
type conversationHint struct {
	ConversationID domain.ID   `json:"conversation_id"`
	Members        []domain.ID `json:"members"`
}

// emitToConversation targets the conversation room when the payload names
// one, otherwise broadcasts. Non-object payloads fall back to broadcast too.
func (t *Translator) emitToConversation(evt string, data json.RawMessage) {
	var hint conversationHint
	_ = json.Unmarshal(data, &hint)
	if hint.ConversationID != "" {
		t.emitter.EmitToRoom(hint.ConversationID.String(), evt, data)
		return
	}
	t.emitter.EmitToAll(evt, data)
}

// relayConversationCreated notifies only the involved members when the
// payload lists them, using each member id directly as a room name. Without
// a member list it broadcasts.
func (t *Translator) relayConversationCreated(data json.RawMessage) {
	var hint conversationHint
	_ = json.Unmarshal(data, &hint)
	if len(hint.Members) == 0 {
		t.emitter.EmitToAll(event.ConversationCreated, data)
		return
	}
	members := lo.Filter(hint.Members, func(id domain.ID, _ int) bool { return id != "" })
	for _, member := range members {
		t.emitter.EmitToRoom(member.String(), event.ConversationCreated, data)
	}
}

type checkinPayload struct {
	EmployeeID       domain.ID `json:"employee_id"`
	CheckinTime      string    `json:"checkinTime"`
	CheckinTimestamp int64     `json:"checkinTimestamp"`
	BaseSeconds      int64     `json:"baseSeconds"`
}

func (t *Translator) relayCheckin(data json.RawMessage) error {
	var p checkinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("malformed checkin payload: %w", err)
	}

	uid := domain.NormalizeEmployeeID(p.EmployeeID.String())
	if uid == "" {
		// Attendance events without an employee id are dropped, not failed.
		return nil
	}

	ts := p.CheckinTimestamp
	if ts == 0 {
		ts = t.now().UnixMilli()
	}

	// Mutate before emitting so a status query racing the emit already
	// sees the new timer.
	t.timers.Put(uid, domain.SessionRecord{
		IsRunning:        true,
		CheckinTime:      p.CheckinTime,
		CheckinTimestamp: ts,
		BaseSeconds:      p.BaseSeconds,
		LastStatus:       domain.StatusActive,
	})

	t.emitter.EmitToRoom(domain.AttendanceRoom(uid), event.AttendanceStarted, event.TimerStarted{
		EmployeeID:       uid,
		CheckinTime:      p.CheckinTime,
		CheckinTimestamp: ts,
		BaseSeconds:      p.BaseSeconds,
		ServerNow:        t.now().UnixMilli(),
	})
	return nil
}

type checkoutPayload struct {
	EmployeeID   domain.ID `json:"employee_id"`
	CheckoutTime string    `json:"checkoutTime"`
	TotalSeconds *int64    `json:"totalSeconds"`
	Status       string    `json:"status"`
}

func (t *Translator) relayCheckout(data json.RawMessage) error {
	var p checkoutPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("malformed checkout payload: %w", err)
	}

	uid := domain.NormalizeEmployeeID(p.EmployeeID.String())
	if uid == "" {
		return nil
	}

	// Delete-if-present: a checkout with no live timer (relay restarted
	// mid-session) still fans out.
	t.timers.Delete(uid)

	t.emitter.EmitToRoom(domain.AttendanceRoom(uid), event.AttendanceStopped, event.TimerStopped{
		EmployeeID:   uid,
		CheckoutTime: p.CheckoutTime,
		TotalSeconds: p.TotalSeconds,
		Status:       p.Status,
		ServerNow:    t.now().UnixMilli(),
	})
	return nil
}

type statusUpdatePayload struct {
	EmployeeID   domain.ID `json:"employee_id"`
	TotalSeconds *int64    `json:"totalSeconds"`
	Status       string    `json:"status"`
}

func (t *Translator) relayStatusUpdate(data json.RawMessage) error {
	var p statusUpdatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("malformed status-update payload: %w", err)
	}

	uid := domain.NormalizeEmployeeID(p.EmployeeID.String())
	if uid == "" {
		return nil
	}

	t.emitter.EmitToRoom(domain.AttendanceRoom(uid), event.AttendanceStatusUpdate, event.TimerStatusUpdated{
		EmployeeID:   uid,
		TotalSeconds: p.TotalSeconds,
		Status:       p.Status,
		AutoUpdated:  true,
		ServerNow:    t.now().UnixMilli(),
	})
	return nil
}
