package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/agorachat/agora/internal/model"
)

// Key prefixes. Entities are stored one key per record so a Save only
// rewrites what changed relative to the last snapshot.
const (
	prefixUser    = "user/"
	prefixMessage = "msg/"
	prefixAgent   = "agent/"
	keyTyping     = "presence/typing"
	keyLooking    = "presence/looking"
)

// PebbleStore persists state in a Pebble keyspace. Writes use pebble.Sync so
// a committed mutation survives process death.
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens (or creates) a Pebble database at path.
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble db: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// Load reconstructs the full state from the keyspace.
func (s *PebbleStore) Load() (*State, error) {
	state := NewState()

	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("open iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key := string(iter.Key())
		value := iter.Value()

		switch {
		case strings.HasPrefix(key, prefixUser):
			var u model.User
			if err := json.Unmarshal(value, &u); err != nil {
				return nil, fmt.Errorf("decode user %s: %w", key, err)
			}
			state.Users = append(state.Users, u)
		case strings.HasPrefix(key, prefixMessage):
			var m model.Message
			if err := json.Unmarshal(value, &m); err != nil {
				return nil, fmt.Errorf("decode message %s: %w", key, err)
			}
			state.Messages = append(state.Messages, m)
		case strings.HasPrefix(key, prefixAgent):
			var a model.AgentConfig
			if err := json.Unmarshal(value, &a); err != nil {
				return nil, fmt.Errorf("decode agent %s: %w", key, err)
			}
			state.Agents = append(state.Agents, a)
		case key == keyTyping:
			if err := json.Unmarshal(value, &state.Typing); err != nil {
				return nil, fmt.Errorf("decode typing map: %w", err)
			}
		case key == keyLooking:
			if err := json.Unmarshal(value, &state.AgentLooking); err != nil {
				return nil, fmt.Errorf("decode looking map: %w", err)
			}
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate keyspace: %w", err)
	}
	if state.Typing == nil {
		state.Typing = make(map[string]time.Time)
	}
	if state.AgentLooking == nil {
		state.AgentLooking = make(map[string]time.Time)
	}
	return state, nil
}

// Save writes the state as one atomic batch, clearing each namespace before
// rewriting it so deleted entities do not survive a restart.
func (s *PebbleStore) Save(state *State) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, prefix := range []string{prefixUser, prefixMessage, prefixAgent} {
		if err := batch.DeleteRange([]byte(prefix), []byte(prefix+"\xff"), nil); err != nil {
			return fmt.Errorf("clear %s namespace: %w", prefix, err)
		}
	}

	for _, u := range state.Users {
		if err := batchSet(batch, prefixUser+u.ID, u); err != nil {
			return err
		}
	}
	for _, m := range state.Messages {
		if err := batchSet(batch, prefixMessage+m.ID, m); err != nil {
			return err
		}
	}
	for _, a := range state.Agents {
		if err := batchSet(batch, prefixAgent+a.ID, a); err != nil {
			return err
		}
	}
	if err := batchSet(batch, keyTyping, state.Typing); err != nil {
		return err
	}
	if err := batchSet(batch, keyLooking, state.AgentLooking); err != nil {
		return err
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}

func batchSet(batch *pebble.Batch, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := batch.Set([]byte(key), data, nil); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
