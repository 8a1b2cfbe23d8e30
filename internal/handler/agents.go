package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/agorachat/agora/internal/middleware"
	"github.com/agorachat/agora/internal/model"
	"github.com/agorachat/agora/internal/service"
	"github.com/agorachat/agora/pkg/logger"
)

// AgentHandler handles the automated-participant surface: registry listing,
// heartbeats, and agent-authored messages.
type AgentHandler struct {
	room   *service.Room
	logger *logger.Logger
}

// NewAgentHandler creates a new agent handler.
func NewAgentHandler(room *service.Room, log *logger.Logger) *AgentHandler {
	return &AgentHandler{room: room, logger: log}
}

// List handles GET /api/v1/agents
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.ListAgentsResponse{Agents: h.room.Agents()})
}

// Heartbeat handles POST /api/v1/agents/{id}/heartbeat
// Refreshes the agent's "looking at the conversation" entry for one TTL
// window; agents send this while deciding whether to respond.
func (h *AgentHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "id")
	if err := middleware.ValidateAgentID(agentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshot, err := h.room.Heartbeat(agentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.AgentsLookingPayload{LookingAgents: snapshot})
}

// CreateMessage handles POST /api/v1/agents/{id}/messages
// The same creation contract as the human endpoint; the message is
// indistinguishable in shape, only the sender's IsAgent flag differs.
func (h *AgentHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "id")
	if err := middleware.ValidateAgentID(agentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.room.AgentMessage(agentID, &req)
	if err != nil {
		h.logger.Warn("agent message failed", zap.String("agent_id", agentID), zap.Error(err))
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}
