package model

import (
	"encoding/json"
	"fmt"
)

// EventType is the closed vocabulary of events on the push connection. The
// names are part of the wire contract shared with every client and must stay
// stable across versions.
type EventType string

const (
	EventMessageCreated EventType = "message:created"
	EventMessageUpdated EventType = "message:updated"
	EventMessageDeleted EventType = "message:deleted"
	EventTypingUpdate   EventType = "typing:update"
	EventAgentsLooking  EventType = "agents:looking"
	EventUserUpdated    EventType = "user:updated"

	// Resync pair, exchanged on (re)connection.
	EventSyncRequest EventType = "sync:request"
	EventSyncState   EventType = "sync:state"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventMessageCreated, EventMessageUpdated, EventMessageDeleted,
		EventTypingUpdate, EventAgentsLooking, EventUserUpdated,
		EventSyncRequest, EventSyncState:
		return true
	}
	return false
}

// Event is the envelope carried on the broadcast channel and the websocket.
type Event struct {
	Type EventType       `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals data into an event envelope.
func NewEvent(t EventType, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Event{Type: t, Data: raw}, nil
}

// MessageCreatedPayload accompanies message:created. Users carries the
// sender's public record so clients need no separate lookup.
type MessageCreatedPayload struct {
	Message Message `json:"message"`
	Users   []User  `json:"users"`
}

// MessageUpdatedPayload accompanies message:updated (reactions and edits).
type MessageUpdatedPayload struct {
	Message Message `json:"message"`
}

// MessageDeletedPayload accompanies message:deleted and carries the full
// cascade set.
type MessageDeletedPayload struct {
	MessageIDs []string `json:"messageIds"`
}

// TypingUpdatePayload accompanies typing:update.
type TypingUpdatePayload struct {
	TypingUsers []string `json:"typingUsers"`
}

// AgentPresence is one "agent is looking at the conversation" entry, with
// the profile resolved at broadcast time.
type AgentPresence struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// AgentsLookingPayload accompanies agents:looking.
type AgentsLookingPayload struct {
	LookingAgents []AgentPresence `json:"lookingAgents"`
}

// UserUpdatedPayload accompanies user:updated (presence status changes).
type UserUpdatedPayload struct {
	User User `json:"user"`
}

// SyncStatePayload answers sync:request with the full ephemeral presence
// snapshot. Durable message history is deliberately absent: it is recovered
// through the list endpoint, which cannot go stale the way presence can.
type SyncStatePayload struct {
	TypingUsers   []string        `json:"typingUsers"`
	LookingAgents []AgentPresence `json:"lookingAgents"`
}
