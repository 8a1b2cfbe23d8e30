package handler

import (
	"encoding/json"
	"net/http"

	"github.com/agorachat/agora/internal/middleware"
	"github.com/agorachat/agora/internal/model"
	"github.com/agorachat/agora/internal/service"
	"github.com/agorachat/agora/pkg/logger"
)

// UserHandler handles user endpoints.
type UserHandler struct {
	room   *service.Room
	logger *logger.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(room *service.Room, log *logger.Logger) *UserHandler {
	return &UserHandler{room: room, logger: log}
}

// List handles GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.ListUsersResponse{Users: h.room.ListUsers()})
}

// UpdateStatus handles PUT /api/v1/users/me/status
func (h *UserHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.room.UpdateStatus(userID, req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Register ensures a user record exists for the verified identity in the
// request context. Mounted so authenticated callers materialize before other
// routes run.
func Register(room *service.Room, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := middleware.GetUserID(ctx)
			if userID != "" {
				if _, err := room.EnsureUser(userID, middleware.GetUserName(ctx), middleware.GetUserAvatar(ctx), false); err != nil {
					writeError(w, http.StatusInternalServerError, "failed to register user")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
