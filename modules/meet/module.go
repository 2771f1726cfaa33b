// Package meet scopes meeting signalling to per-meeting rooms.
package meet

import (
	"encoding/json"
	"log/slog"

	"office-relay/domain"
	"office-relay/hub"
)

// RoomPrefix namespaces meeting rooms away from conversation and user ids.
const RoomPrefix = "meet:"

type joinPayload struct {
	MeetingID domain.ID `json:"meeting_id"`
}

// Mount wires the meeting actions onto the hub.
func Mount(log *slog.Logger, h *hub.Hub) {
	h.RegisterAction("meet:join", func(c *hub.Client, data json.RawMessage) {
		var p joinPayload
		if err := json.Unmarshal(data, &p); err != nil || p.MeetingID == "" {
			log.Debug("Meet join without meeting_id ignored", "client_id", c.ID)
			return
		}
		h.Join(c, RoomPrefix+p.MeetingID.String())
	})

	h.RegisterAction("meet:leave", func(c *hub.Client, data json.RawMessage) {
		var p joinPayload
		if err := json.Unmarshal(data, &p); err != nil || p.MeetingID == "" {
			return
		}
		h.Leave(c, RoomPrefix+p.MeetingID.String())
	})
}
