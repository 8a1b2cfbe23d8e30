package service

import (
	"time"

	"github.com/agorachat/agora/internal/model"
	"github.com/agorachat/agora/internal/presence"
)

// persistPresence writes room state to the store after a presence table
// change. On failure the table entry is restored to its previous expiry (or
// absence), so the in-memory snapshot never runs ahead of disk.
func (r *Room) persistPresence(table *presence.Table, id string, prevExp time.Time, had bool) error {
	r.mu.Lock()
	err := r.persist()
	r.mu.Unlock()
	if err == nil {
		return nil
	}
	if had {
		table.Seed(map[string]time.Time{id: prevExp})
	} else {
		table.SetInactive(id)
	}
	return err
}

// SetTyping refreshes or clears the caller's typing indicator and broadcasts
// the resulting typing:update snapshot. The entry is written through to the
// store with its absolute expiry, so an indicator set just before a restart
// still ages out on schedule rather than resetting.
func (r *Room) SetTyping(userID string, typing bool) ([]string, error) {
	prevExp, had := r.typing.Entry(userID)
	if typing {
		r.typing.SetActive(userID)
	} else {
		r.typing.SetInactive(userID)
	}
	if err := r.persistPresence(r.typing, userID, prevExp, had); err != nil {
		return nil, err
	}
	snapshot := r.typing.Snapshot()
	r.broadcast(model.EventTypingUpdate, model.TypingUpdatePayload{TypingUsers: snapshot})
	return snapshot, nil
}

// TypingSnapshot returns the ids of currently-typing users.
func (r *Room) TypingSnapshot() []string {
	return r.typing.Snapshot()
}

// lookingAgents resolves the looking table into presence entries with the
// profile joined in at read time, so clients never have to.
func (r *Room) lookingAgents() []model.AgentPresence {
	ids := r.looking.Snapshot()

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AgentPresence, 0, len(ids))
	for _, id := range ids {
		entry := model.AgentPresence{ID: id, Name: id}
		for _, a := range r.agents {
			if a.ID != id {
				continue
			}
			entry.Name = a.Name
			if u, ok := r.users[a.UserID]; ok {
				entry.Avatar = u.Avatar
			}
			break
		}
		out = append(out, entry)
	}
	return out
}

// LookingAgents returns the agents currently inspecting the conversation.
func (r *Room) LookingAgents() []model.AgentPresence {
	return r.lookingAgents()
}
