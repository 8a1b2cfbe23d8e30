package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/agorachat/agora/internal/model"
)

// Agents returns the agent registry.
func (r *Room) Agents() []model.AgentConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AgentConfig(nil), r.agents...)
}

// GetAgent returns one agent config by id.
func (r *Room) GetAgent(agentID string) (*model.AgentConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.agents {
		if a.ID == agentID {
			out := a
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: agent %s", ErrNotFound, agentID)
}

// SeedAgents installs registry entries for agents missing from the store and
// ensures each has a backing user record. Run once at startup from config.
func (r *Room) SeedAgents(configs []model.AgentConfig) error {
	for _, cfg := range configs {
		if _, err := r.GetAgent(cfg.ID); err == nil {
			continue
		}
		if _, err := r.EnsureUser(cfg.UserID, cfg.Name, "", true); err != nil {
			return fmt.Errorf("seed agent user %s: %w", cfg.UserID, err)
		}
		r.mu.Lock()
		r.agents = append(r.agents, cfg)
		err := r.persist()
		if err != nil {
			r.agents = r.agents[:len(r.agents)-1]
		}
		r.mu.Unlock()
		if err != nil {
			return fmt.Errorf("persist agent %s: %w", cfg.ID, err)
		}
	}
	return nil
}

// Heartbeat marks an agent as looking at the conversation for one TTL window
// and broadcasts the refreshed agents:looking snapshot. An agent can be
// looking without typing, which is why the two tables are separate.
func (r *Room) Heartbeat(agentID string) ([]model.AgentPresence, error) {
	if _, err := r.GetAgent(agentID); err != nil {
		return nil, err
	}
	prevExp, had := r.looking.Entry(agentID)
	r.looking.SetActive(agentID)
	if err := r.persistPresence(r.looking, agentID, prevExp, had); err != nil {
		return nil, err
	}
	snapshot := r.lookingAgents()
	r.broadcast(model.EventAgentsLooking, model.AgentsLookingPayload{LookingAgents: snapshot})
	return snapshot, nil
}

// AgentMessage posts a message on behalf of an agent. From the room's
// perspective the result is shaped like any other message; only the sender's
// IsAgent flag marks its origin. Posting also clears the agent's looking
// entry, since the decision to respond has been made.
func (r *Room) AgentMessage(agentID string, req *model.CreateMessageRequest) (*model.CreateMessageResponse, error) {
	agent, err := r.GetAgent(agentID)
	if err != nil {
		return nil, err
	}

	resp, err := r.CreateMessage(agent.UserID, req)
	if err != nil {
		return nil, err
	}

	prevExp, had := r.looking.Entry(agentID)
	r.looking.SetInactive(agentID)
	if err := r.persistPresence(r.looking, agentID, prevExp, had); err != nil {
		// The message itself is already committed; returning an error here
		// would invite a duplicate retry. The looking entry stays and ages
		// out on its own.
		r.logger.Warn("failed to persist cleared looking entry",
			zap.String("agent_id", agentID), zap.Error(err))
	}
	r.broadcast(model.EventAgentsLooking, model.AgentsLookingPayload{LookingAgents: r.lookingAgents()})

	return resp, nil
}
