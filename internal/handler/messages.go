// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/agorachat/agora/internal/middleware"
	"github.com/agorachat/agora/internal/model"
	"github.com/agorachat/agora/internal/service"
	"github.com/agorachat/agora/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	room   *service.Room
	logger *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(room *service.Room, log *logger.Logger) *MessageHandler {
	return &MessageHandler{room: room, logger: log}
}

// List handles GET /api/v1/messages
// Query params: since (epoch ms, exclusive), before (epoch ms, exclusive),
// limit. The window is newest-first; results come back in ascending
// (timestamp, id) order ready for the client's merge.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	var since, before int64
	limit := 0

	if v := r.URL.Query().Get("since"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			since = parsed
		}
	}
	if v := r.URL.Query().Get("before"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			before = parsed
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	writeJSON(w, http.StatusOK, h.room.ListMessages(since, before, limit))
}

// Create handles POST /api/v1/messages
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.room.CreateMessage(userID, &req)
	if err != nil {
		h.logger.Warn("create message failed", zap.String("user_id", userID), zap.Error(err))
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Edit handles PUT /api/v1/messages/{id}
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID := chi.URLParam(r, "id")

	if err := middleware.ValidateMessageID(messageID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.room.EditMessage(messageID, userID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.MessageUpdatedPayload{Message: *msg})
}

// Delete handles DELETE /api/v1/messages/{id}
// The response carries every deleted id, direct replies included, so the
// deleting client can purge the cascade set without waiting for its own
// broadcast echo.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID := chi.URLParam(r, "id")

	if err := middleware.ValidateMessageID(messageID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := h.room.DeleteMessage(messageID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.DeleteMessageResponse{DeletedMessageIDs: deleted})
}

// React handles POST /api/v1/messages/{id}/reactions
// Toggle semantics only: the authoritative post-toggle message comes back in
// the response for callers that need the end state.
func (h *MessageHandler) React(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID := chi.URLParam(r, "id")

	if err := middleware.ValidateMessageID(messageID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.ToggleReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.room.ToggleReaction(messageID, userID, req.Emoji)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.MessageUpdatedPayload{Message: *msg})
}
