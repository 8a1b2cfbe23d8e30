package handler

import (
	"encoding/json"
	"net/http"

	"github.com/agorachat/agora/internal/middleware"
	"github.com/agorachat/agora/internal/model"
	"github.com/agorachat/agora/internal/service"
	"github.com/agorachat/agora/pkg/logger"
)

// PresenceHandler handles typing and agent-looking endpoints.
type PresenceHandler struct {
	room   *service.Room
	logger *logger.Logger
}

// NewPresenceHandler creates a new presence handler.
func NewPresenceHandler(room *service.Room, log *logger.Logger) *PresenceHandler {
	return &PresenceHandler{room: room, logger: log}
}

// SetTyping handles POST /api/v1/typing
func (h *PresenceHandler) SetTyping(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.SetTypingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snapshot, err := h.room.SetTyping(userID, req.Typing)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.TypingResponse{TypingUsers: snapshot})
}

// GetTyping handles GET /api/v1/typing
func (h *PresenceHandler) GetTyping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.TypingResponse{TypingUsers: h.room.TypingSnapshot()})
}

// GetLooking handles GET /api/v1/agents/looking
func (h *PresenceHandler) GetLooking(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.AgentsLookingPayload{LookingAgents: h.room.LookingAgents()})
}
