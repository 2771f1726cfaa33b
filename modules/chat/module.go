// Package chat registers the messaging-side join protocol: clients bind
// their user id and subscribe to conversation rooms so relayed chat events
// reach only the people involved.
package chat

import (
	"encoding/json"
	"log/slog"

	"office-relay/domain"
	"office-relay/hub"
)

type registerPayload struct {
	UserID domain.ID `json:"user_id"`
}

type conversationPayload struct {
	ConversationID domain.ID `json:"conversation_id"`
}

// Mount wires the chat actions onto the hub.
func Mount(log *slog.Logger, h *hub.Hub) {
	h.RegisterAction("register", func(c *hub.Client, data json.RawMessage) {
		var p registerPayload
		if err := json.Unmarshal(data, &p); err != nil || p.UserID == "" {
			log.Debug("Register without user_id ignored", "client_id", c.ID)
			return
		}
		// The user id doubles as a room name so conversation_created can
		// target individual members.
		h.Join(c, p.UserID.String())
	})

	h.RegisterAction("join_conversation", func(c *hub.Client, data json.RawMessage) {
		var p conversationPayload
		if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == "" {
			return
		}
		h.Join(c, p.ConversationID.String())
	})

	h.RegisterAction("leave_conversation", func(c *hub.Client, data json.RawMessage) {
		var p conversationPayload
		if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == "" {
			return
		}
		h.Leave(c, p.ConversationID.String())
	})
}
