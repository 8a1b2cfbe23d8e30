// Package store provides durable persistence for the chat room state.
package store

import (
	"time"

	"github.com/agorachat/agora/internal/model"
)

// State is the full persisted document: read once on boot, written after
// every committed mutation before that mutation is acknowledged.
type State struct {
	Users        []model.User         `json:"users"`
	Messages     []model.Message      `json:"messages"`
	Agents       []model.AgentConfig  `json:"agents,omitempty"`
	Typing       map[string]time.Time `json:"typing,omitempty"`
	AgentLooking map[string]time.Time `json:"agentLooking,omitempty"`
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		Typing:       make(map[string]time.Time),
		AgentLooking: make(map[string]time.Time),
	}
}

// Store is the durable persistence contract. Save failure fails the mutation
// that triggered it; no broadcast may be emitted for an unsaved change.
type Store interface {
	Load() (*State, error)
	Save(state *State) error
	Close() error
}
