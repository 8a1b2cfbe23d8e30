// Package client implements the client-side reconciliation state machine for
// the chat room: a pure reducer that folds the hydration snapshot, broadcast
// events, poll results, and optimistic local writes into one consistent view,
// plus a sync runtime that feeds it.
package client

import (
	"sort"

	"github.com/agorachat/agora/internal/model"
)

// AuthStatus tracks whether the view has been hydrated for an authenticated
// session.
type AuthStatus string

const (
	AuthUnknown       AuthStatus = "unknown"
	AuthAuthenticated AuthStatus = "authenticated"
)

// View is the reducer's state: one canonical, deduplicated, ordered picture
// of the conversation. Views are treated as immutable snapshots; Apply
// returns a new View and never mutates its input.
type View struct {
	Users         map[string]model.User
	Messages      map[string]model.Message
	Order         []string // message ids in (timestamp, id) order
	TypingUsers   []string
	LookingAgents []model.AgentPresence
	ReplyingTo    *model.Message
	AuthStatus    AuthStatus
}

// NewView returns an empty view.
func NewView() View {
	return View{
		Users:      make(map[string]model.User),
		Messages:   make(map[string]model.Message),
		AuthStatus: AuthUnknown,
	}
}

// Ordered materializes the messages in display order.
func (v View) Ordered() []model.Message {
	out := make([]model.Message, 0, len(v.Order))
	for _, id := range v.Order {
		if m, ok := v.Messages[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

// resort rebuilds Order from the message map. This is the sole source of
// display ordering, which makes merges commutative over batches: arrival
// order never matters, only (timestamp, id).
func (v *View) resort() {
	ids := make([]string, 0, len(v.Messages))
	for id := range v.Messages {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := v.Messages[ids[i]], v.Messages[ids[j]]
		return a.Before(&b)
	})
	v.Order = ids
}

func (v View) cloneMessages() map[string]model.Message {
	out := make(map[string]model.Message, len(v.Messages))
	for id, m := range v.Messages {
		out[id] = m
	}
	return out
}

func (v View) cloneUsers() map[string]model.User {
	out := make(map[string]model.User, len(v.Users))
	for id, u := range v.Users {
		out[id] = u
	}
	return out
}
