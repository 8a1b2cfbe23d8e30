package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agorachat/agora/internal/model"
)

func msg(id string, ts int64, content string) model.Message {
	return model.Message{
		ID:             id,
		ConversationID: model.DefaultConversationID,
		SenderID:       "alice",
		Content:        content,
		Timestamp:      ts,
	}
}

func orderedIDs(v View) []string {
	out := make([]string, 0, len(v.Order))
	for _, m := range v.Ordered() {
		out = append(out, m.ID)
	}
	return out
}

func TestHydrateReplacesState(t *testing.T) {
	v := NewView()
	v = Apply(v, UpsertMessages{Messages: []model.Message{msg("stale", 1, "gone after hydrate")}})

	v = Apply(v, Hydrate{
		Users:    []model.User{{ID: "alice", Name: "Alice"}},
		Messages: []model.Message{msg("m1", 100, "hello"), msg("m2", 200, "world")},
	})

	assert.Equal(t, AuthAuthenticated, v.AuthStatus)
	assert.Equal(t, []string{"m1", "m2"}, orderedIDs(v))
	assert.NotContains(t, v.Messages, "stale")
	assert.Contains(t, v.Users, "alice")
}

func TestUpsertIsIdempotent(t *testing.T) {
	v := NewView()
	batch := UpsertMessages{Messages: []model.Message{msg("m1", 100, "a"), msg("m2", 200, "b")}}

	once := Apply(v, batch)
	twice := Apply(once, batch)

	assert.Equal(t, once.Messages, twice.Messages)
	assert.Equal(t, once.Order, twice.Order)
}

func TestMergeIsCommutativeOverBatches(t *testing.T) {
	a := UpsertMessages{Messages: []model.Message{msg("m1", 100, "a"), msg("m3", 300, "c")}}
	b := UpsertMessages{Messages: []model.Message{msg("m2", 200, "b")}}

	ab := Apply(Apply(NewView(), a), b)
	ba := Apply(Apply(NewView(), b), a)

	assert.Equal(t, ab.Messages, ba.Messages)
	assert.Equal(t, []string{"m1", "m2", "m3"}, orderedIDs(ab))
	assert.Equal(t, ab.Order, ba.Order)
}

func TestOrderingTieBrokenByID(t *testing.T) {
	v := Apply(NewView(), UpsertMessages{Messages: []model.Message{
		msg("m-b", 100, "second by id"),
		msg("m-a", 100, "first by id"),
	}})
	assert.Equal(t, []string{"m-a", "m-b"}, orderedIDs(v))
}

func TestUpdateBeforeCreateInserts(t *testing.T) {
	// An update for a message the view has never seen must insert it, since
	// broadcast delivery is best-effort and unordered.
	v := Apply(NewView(), UpdateMessage{Message: msg("m1", 100, "edited")})
	require.Contains(t, v.Messages, "m1")
	assert.Equal(t, "edited", v.Messages["m1"].Content)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	base := Apply(NewView(), UpsertMessages{Messages: []model.Message{msg("m1", 100, "original")}})

	edited := msg("m1", 100, "edited")
	_ = Apply(base, UpdateMessage{Message: edited})
	_ = Apply(base, ToggleReaction{MessageID: "m1", UserID: "alice", Emoji: "👍"})
	_ = Apply(base, DeleteMessages{IDs: []string{"m1"}})

	assert.Equal(t, "original", base.Messages["m1"].Content)
	assert.Empty(t, base.Messages["m1"].Reactions)
	assert.Equal(t, []string{"m1"}, orderedIDs(base))
}

func TestOptimisticToggleMatchesServerStateMachine(t *testing.T) {
	v := Apply(NewView(), UpsertMessages{Messages: []model.Message{msg("m1", 100, "react")}})

	v = Apply(v, ToggleReaction{MessageID: "m1", UserID: "alice", Emoji: "👍"})
	require.Len(t, v.Messages["m1"].Reactions, 1)
	assert.Equal(t, []string{"alice"}, v.Messages["m1"].Reactions[0].UserIDs)

	// The second toggle undoes the first, exactly as the server would.
	v = Apply(v, ToggleReaction{MessageID: "m1", UserID: "alice", Emoji: "👍"})
	assert.Empty(t, v.Messages["m1"].Reactions)

	// Unknown target: the optimistic path is a no-op.
	before := v
	v = Apply(v, ToggleReaction{MessageID: "ghost", UserID: "alice", Emoji: "👍"})
	assert.Equal(t, before.Messages, v.Messages)
}

func TestAuthoritativeUpdateSupersedesOptimisticToggle(t *testing.T) {
	v := Apply(NewView(), UpsertMessages{Messages: []model.Message{msg("m1", 100, "react")}})
	v = Apply(v, ToggleReaction{MessageID: "m1", UserID: "alice", Emoji: "👍"})

	// Server resolved the same tap differently (someone else reacted first).
	authoritative := msg("m1", 100, "react")
	authoritative.Reactions = []model.Reaction{{Emoji: "👍", Count: 2, UserIDs: []string{"bob", "alice"}}}
	v = Apply(v, UpdateMessage{Message: authoritative})

	require.Len(t, v.Messages["m1"].Reactions, 1)
	assert.Equal(t, []string{"bob", "alice"}, v.Messages["m1"].Reactions[0].UserIDs)
}

func TestDeleteMessagesClearsReplyTarget(t *testing.T) {
	target := msg("m1", 100, "reply to me")
	v := Apply(NewView(), UpsertMessages{Messages: []model.Message{target, msg("m2", 200, "other")}})
	v = Apply(v, SetReplyingTo{Message: &target})

	v = Apply(v, DeleteMessages{IDs: []string{"m1"}})

	assert.Nil(t, v.ReplyingTo)
	assert.Equal(t, []string{"m2"}, orderedIDs(v))

	// Deleting an unrelated message leaves the target alone.
	other := msg("m2", 200, "other")
	v = Apply(v, SetReplyingTo{Message: &other})
	v = Apply(v, DeleteMessages{IDs: []string{"m3"}})
	require.NotNil(t, v.ReplyingTo)
	assert.Equal(t, "m2", v.ReplyingTo.ID)
}

func TestSetMessageStatus(t *testing.T) {
	v := Apply(NewView(), UpsertMessages{Messages: []model.Message{msg("m1", 100, "sending")}})

	v = Apply(v, SetMessageStatus{MessageID: "m1", Status: model.DeliveryFailed})
	assert.Equal(t, model.DeliveryFailed, v.Messages["m1"].Status)

	// The message stays visible for a retry.
	assert.Equal(t, []string{"m1"}, orderedIDs(v))
}

func TestPresenceActionsReplaceSets(t *testing.T) {
	v := Apply(NewView(), SetTyping{UserIDs: []string{"alice", "bob"}})
	assert.Equal(t, []string{"alice", "bob"}, v.TypingUsers)

	v = Apply(v, SetTyping{UserIDs: nil})
	assert.Empty(t, v.TypingUsers)

	v = Apply(v, SetLookingAgents{Agents: []model.AgentPresence{{ID: "helper-agent-1", Name: "Helper"}}})
	require.Len(t, v.LookingAgents, 1)
	assert.Equal(t, "Helper", v.LookingAgents[0].Name)
}
