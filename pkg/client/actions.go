package client

import "github.com/agorachat/agora/internal/model"

// Action is the closed set of reducer inputs. Every path into the view
// (hydration, broadcast events, poll results, optimistic local writes) is
// expressed as one of these.
type Action interface {
	isAction()
}

// Hydrate replaces users and messages wholesale from a bootstrap fetch and
// marks the session authenticated.
type Hydrate struct {
	Users    []model.User
	Messages []model.Message
}

// UpsertMessages inserts-or-overwrites messages by id and re-sorts. Both
// message:created broadcasts and polling results flow through this one
// action, so the push and pull paths share a single merge function and
// provably converge. Applying the same batch twice is a no-op.
type UpsertMessages struct {
	Messages []model.Message
}

// UpdateMessage overwrites a message if present, else inserts it. An update
// arriving before its created event is a legitimate out-of-order delivery,
// not an error.
type UpdateMessage struct {
	Message model.Message
}

// DeleteMessages removes messages by id. If the active reply target is in
// the set, it is cleared.
type DeleteMessages struct {
	IDs []string
}

// ToggleReaction is the optimistic local path for a reaction tap: it replays
// the server's toggle state machine against local state, and is later
// superseded by the authoritative UpdateMessage; server value wins.
type ToggleReaction struct {
	MessageID string
	UserID    string
	Emoji     string
}

// SetMessageStatus updates local delivery bookkeeping for an optimistic
// send (a failed send stays visible, flagged, for the human to retry).
type SetMessageStatus struct {
	MessageID string
	Status    model.DeliveryStatus
}

// SetReplyingTo sets or clears (nil) the reply-composition target. Purely
// local; nothing echoes from the server.
type SetReplyingTo struct {
	Message *model.Message
}

// UpsertUsers merges user records carried on broadcasts or fetches.
type UpsertUsers struct {
	Users []model.User
}

// SetTyping replaces the typing id set from typing:update or sync:state.
type SetTyping struct {
	UserIDs []string
}

// SetLookingAgents replaces the looking-agent set from agents:looking or
// sync:state.
type SetLookingAgents struct {
	Agents []model.AgentPresence
}

func (Hydrate) isAction()          {}
func (UpsertMessages) isAction()   {}
func (UpdateMessage) isAction()    {}
func (DeleteMessages) isAction()   {}
func (ToggleReaction) isAction()   {}
func (SetMessageStatus) isAction() {}
func (SetReplyingTo) isAction()    {}
func (UpsertUsers) isAction()      {}
func (SetTyping) isAction()        {}
func (SetLookingAgents) isAction() {}
