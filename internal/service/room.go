// Package service provides business logic for the chat room.
package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agorachat/agora/internal/bus"
	"github.com/agorachat/agora/internal/model"
	"github.com/agorachat/agora/internal/presence"
	"github.com/agorachat/agora/internal/store"
	"github.com/agorachat/agora/pkg/logger"
	"github.com/agorachat/agora/pkg/metrics"
)

// Room is the mutation service for the single global conversation. All
// mutations are serialized behind one mutex held across validate, apply and
// durable write, so the reaction state machine and cascade delete never
// observe a torn intermediate state. The broadcast that follows a commit runs
// outside the lock and is fire-and-forget.
type Room struct {
	store   store.Store
	bus     bus.Bus
	typing  *presence.Table
	looking *presence.Table
	logger  *logger.Logger

	mu       sync.Mutex
	users    map[string]*model.User
	messages map[string]*model.Message
	agents   []model.AgentConfig

	now   func() time.Time
	newID func() string
}

// New loads persisted state and builds the room service. presenceTTL bounds
// how long typing and looking entries survive without a refresh; zero means
// the default.
func New(st store.Store, b bus.Bus, presenceTTL time.Duration, log *logger.Logger) (*Room, error) {
	state, err := st.Load()
	if err != nil {
		return nil, err
	}

	r := &Room{
		store:    st,
		bus:      b,
		typing:   presence.NewTable(presenceTTL),
		looking:  presence.NewTable(presenceTTL),
		logger:   log,
		users:    make(map[string]*model.User, len(state.Users)),
		messages: make(map[string]*model.Message, len(state.Messages)),
		agents:   state.Agents,
		now:      time.Now,
		newID:    func() string { return uuid.Must(uuid.NewV7()).String() },
	}

	for i := range state.Users {
		u := state.Users[i]
		r.users[u.ID] = &u
	}
	for i := range state.Messages {
		m := state.Messages[i]
		r.messages[m.ID] = &m
	}
	r.typing.Seed(state.Typing)
	r.looking.Seed(state.AgentLooking)

	log.Info("room state loaded",
		zap.Int("users", len(r.users)),
		zap.Int("messages", len(r.messages)),
		zap.Int("agents", len(r.agents)),
	)

	return r, nil
}

// persist writes the current state to the durable store. Called with the
// mutation lock held: durability precedes acknowledgment.
func (r *Room) persist() error {
	state := store.NewState()
	state.Users = make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		state.Users = append(state.Users, *u)
	}
	state.Messages = make([]model.Message, 0, len(r.messages))
	for _, m := range r.messages {
		state.Messages = append(state.Messages, m.Clone())
	}
	state.Agents = r.agents
	state.Typing = r.typing.Dump()
	state.AgentLooking = r.looking.Dump()

	start := time.Now()
	err := r.store.Save(state)
	metrics.StoreWriteDuration.Observe(time.Since(start).Seconds())
	return err
}

// broadcast publishes an event after a committed mutation. Delivery failure
// is logged, never surfaced: a client that misses an event recovers through
// resync and polling.
func (r *Room) broadcast(t model.EventType, payload any) {
	event, err := model.NewEvent(t, payload)
	if err != nil {
		r.logger.Error("failed to encode broadcast event", zap.String("event", string(t)), zap.Error(err))
		return
	}
	if err := r.bus.Publish(event); err != nil {
		r.logger.Warn("broadcast publish failed", zap.String("event", string(t)), zap.Error(err))
		return
	}
	metrics.RecordBroadcast(string(t))
}

// nowMillis returns the current instant as epoch milliseconds, the timestamp
// unit on the wire.
func (r *Room) nowMillis() int64 {
	return r.now().UnixMilli()
}

// SyncState builds the sync:state payload: the full ephemeral presence
// snapshot a client needs right after (re)connecting. Message history is
// deliberately excluded; it is durable and recovered via the list endpoint.
func (r *Room) SyncState() model.SyncStatePayload {
	return model.SyncStatePayload{
		TypingUsers:   r.typing.Snapshot(),
		LookingAgents: r.lookingAgents(),
	}
}
