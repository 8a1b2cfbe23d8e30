package client

import (
	"encoding/json"
	"fmt"

	"github.com/agorachat/agora/internal/model"
)

// ActionsForEvent translates one wire event into reducer actions. Both the
// websocket loop and tests use this single mapping, so the event surface and
// the reducer cannot drift apart.
func ActionsForEvent(event model.Event) ([]Action, error) {
	switch event.Type {
	case model.EventMessageCreated:
		var p model.MessageCreatedPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event.Type, err)
		}
		return []Action{
			UpsertUsers{Users: p.Users},
			UpsertMessages{Messages: []model.Message{p.Message}},
		}, nil

	case model.EventMessageUpdated:
		var p model.MessageUpdatedPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event.Type, err)
		}
		return []Action{UpdateMessage{Message: p.Message}}, nil

	case model.EventMessageDeleted:
		var p model.MessageDeletedPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event.Type, err)
		}
		return []Action{DeleteMessages{IDs: p.MessageIDs}}, nil

	case model.EventTypingUpdate:
		var p model.TypingUpdatePayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event.Type, err)
		}
		return []Action{SetTyping{UserIDs: p.TypingUsers}}, nil

	case model.EventAgentsLooking:
		var p model.AgentsLookingPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event.Type, err)
		}
		return []Action{SetLookingAgents{Agents: p.LookingAgents}}, nil

	case model.EventUserUpdated:
		var p model.UserUpdatedPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event.Type, err)
		}
		return []Action{UpsertUsers{Users: []model.User{p.User}}}, nil

	case model.EventSyncState:
		var p model.SyncStatePayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event.Type, err)
		}
		return []Action{
			SetTyping{UserIDs: p.TypingUsers},
			SetLookingAgents{Agents: p.LookingAgents},
		}, nil

	default:
		return nil, fmt.Errorf("unexpected event type %q", event.Type)
	}
}
