package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agorachat/agora/internal/bus"
	"github.com/agorachat/agora/internal/model"
	"github.com/agorachat/agora/internal/store"
	"github.com/agorachat/agora/pkg/logger"
)

// memStore is an in-memory Store with a switchable failure mode for
// exercising the rollback paths.
type memStore struct {
	mu       sync.Mutex
	state    *store.State
	failSave bool
	saves    int
}

func (s *memStore) Load() (*store.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return store.NewState(), nil
	}
	return s.state, nil
}

func (s *memStore) Save(state *store.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errors.New("disk full")
	}
	s.state = state
	s.saves++
	return nil
}

func (s *memStore) Close() error { return nil }

// capture records every event published on the bus.
type capture struct {
	mu     sync.Mutex
	events []model.Event
}

func (c *capture) record(e model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *capture) all() []model.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Event(nil), c.events...)
}

func (c *capture) last(t *testing.T) model.Event {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.events)
	return c.events[len(c.events)-1]
}

func (c *capture) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

type fixture struct {
	room  *Room
	store *memStore
	bus   *bus.MemoryBus
	seen  *capture
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := &memStore{}
	b := bus.NewMemoryBus()
	seen := &capture{}
	_, err := b.Subscribe(seen.record)
	require.NoError(t, err)

	room, err := New(st, b, 7*time.Second, logger.NewNop())
	require.NoError(t, err)

	f := &fixture{
		room:  room,
		store: st,
		bus:   b,
		seen:  seen,
		clock: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	room.now = func() time.Time { return f.clock }

	var seq int
	room.newID = func() string {
		seq++
		return fmt.Sprintf("msg-%04d", seq)
	}

	_, err = room.EnsureUser("alice", "Alice", "", false)
	require.NoError(t, err)
	_, err = room.EnsureUser("bob", "Bob", "", false)
	require.NoError(t, err)
	seen.reset()

	return f
}

func decode[T any](t *testing.T, e model.Event) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(e.Data, &out))
	return out
}

func TestCreateMessage(t *testing.T) {
	f := newFixture(t)

	resp, err := f.room.CreateMessage("alice", &model.CreateMessageRequest{Content: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "alice", resp.Message.SenderID)
	assert.Equal(t, "hello", resp.Message.Content)
	assert.Equal(t, model.DefaultConversationID, resp.Message.ConversationID)
	assert.Equal(t, f.clock.UnixMilli(), resp.Message.Timestamp)
	assert.Equal(t, "Alice", resp.User.Name)

	e := f.seen.last(t)
	assert.Equal(t, model.EventMessageCreated, e.Type)
	payload := decode[model.MessageCreatedPayload](t, e)
	assert.Equal(t, resp.Message.ID, payload.Message.ID)
	require.Len(t, payload.Users, 1)
	assert.Equal(t, "alice", payload.Users[0].ID)
}

func TestCreateMessageValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.room.CreateMessage("alice", &model.CreateMessageRequest{Content: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.room.CreateMessage("alice", &model.CreateMessageRequest{Content: string(make([]byte, maxContentLength+1))})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.room.CreateMessage("ghost", &model.CreateMessageRequest{Content: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.room.CreateMessage("alice", &model.CreateMessageRequest{Content: "hi", ReplyToID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, f.seen.all(), "failed mutations must not broadcast")
}

func TestCreateMessageExtractsMentions(t *testing.T) {
	f := newFixture(t)

	resp, err := f.room.CreateMessage("alice", &model.CreateMessageRequest{Content: "hey @Bob and @nobody"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, resp.Message.Mentions)
}

func TestEditMessage(t *testing.T) {
	f := newFixture(t)

	created, err := f.room.CreateMessage("alice", &model.CreateMessageRequest{Content: "frist"})
	require.NoError(t, err)
	f.clock = f.clock.Add(time.Minute)

	edited, err := f.room.EditMessage(created.Message.ID, "alice", &model.EditMessageRequest{Content: "first"})
	require.NoError(t, err)
	assert.Equal(t, "first", edited.Content)
	assert.Equal(t, []string{"frist"}, edited.EditHistory)
	assert.Equal(t, f.clock.UnixMilli(), edited.EditedAt)

	e := f.seen.last(t)
	assert.Equal(t, model.EventMessageUpdated, e.Type)
}

func TestEditMessageOwnerOnly(t *testing.T) {
	f := newFixture(t)

	created, err := f.room.CreateMessage("alice", &model.CreateMessageRequest{Content: "mine"})
	require.NoError(t, err)

	_, err = f.room.EditMessage(created.Message.ID, "bob", &model.EditMessageRequest{Content: "stolen"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.room.EditMessage("missing", "alice", &model.EditMessageRequest{Content: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMessageCascadesOneLevel(t *testing.T) {
	f := newFixture(t)

	a, err := f.room.CreateMessage("alice", &model.CreateMessageRequest{Content: "root"})
	require.NoError(t, err)
	b, err := f.room.CreateMessage("bob", &model.CreateMessageRequest{Content: "reply", ReplyToID: a.Message.ID})
	require.NoError(t, err)
	c, err := f.room.CreateMessage("alice", &model.CreateMessageRequest{Content: "another reply", ReplyToID: a.Message.ID})
	require.NoError(t, err)
	d, err := f.room.CreateMessage("bob", &model.CreateMessageRequest{Content: "reply to reply", ReplyToID: b.Message.ID})
	require.NoError(t, err)
	f.seen.reset()

	deleted, err := f.room.DeleteMessage(a.Message.ID, "alice")
	require.NoError(t, err)

	// Root first, then direct replies in sorted order. The grandchild stays.
	assert.Equal(t, []string{a.Message.ID, b.Message.ID, c.Message.ID}, deleted)

	_, err = f.room.GetMessage(d.Message.ID)
	assert.NoError(t, err)
	_, err = f.room.GetMessage(b.Message.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	e := f.seen.last(t)
	assert.Equal(t, model.EventMessageDeleted, e.Type)
	payload := decode[model.MessageDeletedPayload](t, e)
	assert.Equal(t, deleted, payload.MessageIDs)
}

func TestDeleteMessageOwnerOnly(t *testing.T) {
	f := newFixture(t)

	created, err := f.room.CreateMessage("alice", &model.CreateMessageRequest{Content: "mine"})
	require.NoError(t, err)

	_, err = f.room.DeleteMessage(created.Message.ID, "bob")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.room.DeleteMessage("missing", "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.room.GetMessage(created.Message.ID)
	assert.NoError(t, err, "a rejected delete must leave the message in place")
}

func TestToggleReaction(t *testing.T) {
	f := newFixture(t)

	created, err := f.room.CreateMessage("alice", &model.CreateMessageRequest{Content: "react to me"})
	require.NoError(t, err)
	id := created.Message.ID

	msg, err := f.room.ToggleReaction(id, "bob", "👍")
	require.NoError(t, err)
	require.Len(t, msg.Reactions, 1)
	assert.Equal(t, 1, msg.Reactions[0].Count)
	assert.Equal(t, []string{"bob"}, msg.Reactions[0].UserIDs)

	msg, err = f.room.ToggleReaction(id, "alice", "👍")
	require.NoError(t, err)
	assert.Equal(t, 2, msg.Reactions[0].Count)
	assert.Equal(t, []string{"bob", "alice"}, msg.Reactions[0].UserIDs)

	// Toggling again removes the membership.
	msg, err = f.room.ToggleReaction(id, "bob", "👍")
	require.NoError(t, err)
	assert.Equal(t, 1, msg.Reactions[0].Count)
	assert.Equal(t, []string{"alice"}, msg.Reactions[0].UserIDs)

	// Last member out removes the entry entirely.
	msg, err = f.room.ToggleReaction(id, "alice", "👍")
	require.NoError(t, err)
	assert.Empty(t, msg.Reactions)

	e := f.seen.last(t)
	assert.Equal(t, model.EventMessageUpdated, e.Type)
}

func TestToggleReactionValidation(t *testing.T) {
	f := newFixture(t)

	created, err := f.room.CreateMessage("alice", &model.CreateMessageRequest{Content: "x"})
	require.NoError(t, err)

	_, err = f.room.ToggleReaction(created.Message.ID, "alice", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.room.ToggleReaction(created.Message.ID, "alice", "👍👍👍👍👍👍👍👍👍")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.room.ToggleReaction("missing", "alice", "👍")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.room.ToggleReaction(created.Message.ID, "ghost", "👍")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreFailureRollsBackAndSkipsBroadcast(t *testing.T) {
	f := newFixture(t)

	created, err := f.room.CreateMessage("alice", &model.CreateMessageRequest{Content: "keep me"})
	require.NoError(t, err)
	f.seen.reset()
	f.store.failSave = true

	_, err = f.room.CreateMessage("alice", &model.CreateMessageRequest{Content: "lost"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)

	_, err = f.room.ToggleReaction(created.Message.ID, "bob", "🎉")
	require.Error(t, err)

	_, err = f.room.DeleteMessage(created.Message.ID, "alice")
	require.Error(t, err)

	assert.Empty(t, f.seen.all(), "no broadcast may follow a failed durable write")

	// Memory rolled back: the original message survives untouched and the
	// failed create left nothing behind.
	f.store.failSave = false
	msg, err := f.room.GetMessage(created.Message.ID)
	require.NoError(t, err)
	assert.Empty(t, msg.Reactions)
	list := f.room.ListMessages(0, 0, 0)
	require.Len(t, list.Messages, 1)
	assert.Equal(t, "keep me", list.Messages[0].Content)
}

func TestListMessagesWindow(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 5; i++ {
		f.clock = f.clock.Add(time.Second)
		_, err := f.room.CreateMessage("alice", &model.CreateMessageRequest{Content: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	// Limit keeps the newest tail, returned in ascending order.
	list := f.room.ListMessages(0, 0, 2)
	require.Len(t, list.Messages, 2)
	assert.True(t, list.HasMore)
	assert.Equal(t, "m3", list.Messages[0].Content)
	assert.Equal(t, "m4", list.Messages[1].Content)

	// since is an exclusive cursor.
	cursor := list.Messages[0].Timestamp
	newer := f.room.ListMessages(cursor, 0, 0)
	require.Len(t, newer.Messages, 1)
	assert.Equal(t, "m4", newer.Messages[0].Content)
	assert.False(t, newer.HasMore)

	require.Len(t, list.Users, 1)
	assert.Equal(t, "alice", list.Users[0].ID)
}

func TestListMessagesTieBrokenByID(t *testing.T) {
	f := newFixture(t)

	// Same timestamp for every message; order must fall back to id.
	a, err := f.room.CreateMessage("alice", &model.CreateMessageRequest{Content: "one"})
	require.NoError(t, err)
	b, err := f.room.CreateMessage("bob", &model.CreateMessageRequest{Content: "two"})
	require.NoError(t, err)

	list := f.room.ListMessages(0, 0, 0)
	require.Len(t, list.Messages, 2)
	assert.Equal(t, a.Message.ID, list.Messages[0].ID)
	assert.Equal(t, b.Message.ID, list.Messages[1].ID)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)

	u, err := f.room.UpdateStatus("alice", model.StatusBusy)
	require.NoError(t, err)
	assert.Equal(t, model.StatusBusy, u.Status)

	e := f.seen.last(t)
	assert.Equal(t, model.EventUserUpdated, e.Type)
	payload := decode[model.UserUpdatedPayload](t, e)
	assert.Equal(t, model.StatusBusy, payload.User.Status)

	_, err = f.room.UpdateStatus("alice", model.Status("invisible"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.room.UpdateStatus("ghost", model.StatusOnline)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureUserRefreshesProfile(t *testing.T) {
	f := newFixture(t)

	u, err := f.room.EnsureUser("alice", "Alice Liddell", "https://cdn/a.png", false)
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", u.Name)
	assert.Equal(t, "https://cdn/a.png", u.Avatar)

	// Empty claims leave existing fields alone.
	u, err = f.room.EnsureUser("alice", "", "", false)
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", u.Name)

	_, err = f.room.EnsureUser("", "X", "", false)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetTypingBroadcastsSnapshot(t *testing.T) {
	f := newFixture(t)

	snapshot, err := f.room.SetTyping("alice", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, snapshot)

	e := f.seen.last(t)
	assert.Equal(t, model.EventTypingUpdate, e.Type)
	payload := decode[model.TypingUpdatePayload](t, e)
	assert.Equal(t, []string{"alice"}, payload.TypingUsers)

	snapshot, err = f.room.SetTyping("alice", false)
	require.NoError(t, err)
	assert.Empty(t, snapshot)
	payload = decode[model.TypingUpdatePayload](t, f.seen.last(t))
	assert.Empty(t, payload.TypingUsers)
}

func TestAgentHeartbeatAndMessage(t *testing.T) {
	f := newFixture(t)

	err := f.room.SeedAgents([]model.AgentConfig{{
		ID:     "helper-agent-1",
		UserID: "user-helper-agent-1",
		Name:   "Helper",
		Model:  model.AgentModel{Provider: "anthropic"},
	}})
	require.NoError(t, err)
	f.seen.reset()

	_, err = f.room.Heartbeat("unknown-agent")
	assert.ErrorIs(t, err, ErrNotFound)

	looking, err := f.room.Heartbeat("helper-agent-1")
	require.NoError(t, err)
	require.Len(t, looking, 1)
	assert.Equal(t, "Helper", looking[0].Name)
	assert.Equal(t, model.EventAgentsLooking, f.seen.last(t).Type)

	// Posting as the agent clears its looking entry.
	resp, err := f.room.AgentMessage("helper-agent-1", &model.CreateMessageRequest{Content: "on it"})
	require.NoError(t, err)
	assert.Equal(t, "user-helper-agent-1", resp.Message.SenderID)
	assert.True(t, resp.User.IsAgent)
	assert.Empty(t, f.room.LookingAgents())
}

func TestSyncStateCarriesPresenceOnly(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.room.SeedAgents([]model.AgentConfig{{
		ID:     "helper-agent-1",
		UserID: "user-helper-agent-1",
		Name:   "Helper",
	}}))
	_, err := f.room.SetTyping("bob", true)
	require.NoError(t, err)
	_, err = f.room.Heartbeat("helper-agent-1")
	require.NoError(t, err)

	state := f.room.SyncState()
	assert.Equal(t, []string{"bob"}, state.TypingUsers)
	require.Len(t, state.LookingAgents, 1)
	assert.Equal(t, "helper-agent-1", state.LookingAgents[0].ID)
}

func TestPresenceSurvivesReload(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.room.SeedAgents([]model.AgentConfig{{
		ID:     "helper-agent-1",
		UserID: "user-helper-agent-1",
		Name:   "Helper",
	}}))
	_, err := f.room.SetTyping("alice", true)
	require.NoError(t, err)
	_, err = f.room.Heartbeat("helper-agent-1")
	require.NoError(t, err)

	// A restart within the TTL window sees the same indicators, with their
	// original expiry instants.
	reloaded, err := New(f.store, f.bus, 7*time.Second, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, reloaded.TypingSnapshot())
	looking := reloaded.LookingAgents()
	require.Len(t, looking, 1)
	assert.Equal(t, "helper-agent-1", looking[0].ID)
}

func TestTypingStoreFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.seen.reset()
	f.store.failSave = true

	_, err := f.room.SetTyping("alice", true)
	require.Error(t, err)
	assert.Empty(t, f.room.TypingSnapshot())
	assert.Empty(t, f.seen.all())
}

func TestHeartbeatStoreFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.room.SeedAgents([]model.AgentConfig{{
		ID:     "helper-agent-1",
		UserID: "user-helper-agent-1",
		Name:   "Helper",
	}}))
	f.store.failSave = true
	f.seen.reset()

	_, err := f.room.Heartbeat("helper-agent-1")
	require.Error(t, err)
	assert.Empty(t, f.room.LookingAgents())
	assert.Empty(t, f.seen.all())
}

func TestStateSurvivesReload(t *testing.T) {
	f := newFixture(t)

	created, err := f.room.CreateMessage("alice", &model.CreateMessageRequest{Content: "durable"})
	require.NoError(t, err)
	_, err = f.room.ToggleReaction(created.Message.ID, "bob", "🔥")
	require.NoError(t, err)

	reloaded, err := New(f.store, f.bus, 7*time.Second, logger.NewNop())
	require.NoError(t, err)

	msg, err := reloaded.GetMessage(created.Message.ID)
	require.NoError(t, err)
	assert.Equal(t, "durable", msg.Content)
	require.Len(t, msg.Reactions, 1)
	assert.Equal(t, []string{"bob"}, msg.Reactions[0].UserIDs)
	assert.Len(t, reloaded.ListUsers(), 2)
}
