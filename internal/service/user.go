package service

import (
	"fmt"
	"sort"

	"github.com/agorachat/agora/internal/model"
)

// EnsureUser registers or refreshes a user record from verified identity
// claims. Identity is the auth collaborator's concern; the room trusts the
// supplied id completely. Called on every authenticated request, so a user
// seen for the first time exists before their first mutation commits.
func (r *Room) EnsureUser(id, name, avatar string, isAgent bool) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: user id cannot be empty", ErrValidation)
	}

	r.mu.Lock()
	u, ok := r.users[id]
	if ok {
		// Refresh mutable profile fields from the claims.
		changed := false
		if name != "" && u.Name != name {
			u.Name = name
			changed = true
		}
		if avatar != "" && u.Avatar != avatar {
			u.Avatar = avatar
			changed = true
		}
		if !changed {
			out := *u
			r.mu.Unlock()
			return &out, nil
		}
	} else {
		if name == "" {
			name = id
		}
		u = &model.User{
			ID:      id,
			Name:    name,
			Avatar:  avatar,
			IsAgent: isAgent,
			Status:  model.StatusOnline,
		}
		r.users[id] = u
	}

	if err := r.persist(); err != nil {
		if !ok {
			delete(r.users, id)
		}
		r.mu.Unlock()
		return nil, fmt.Errorf("persist user: %w", err)
	}

	out := *u
	r.mu.Unlock()
	return &out, nil
}

// UpdateStatus changes a user's presence status and broadcasts user:updated.
func (r *Room) UpdateStatus(userID string, status model.Status) (*model.User, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	r.mu.Lock()
	u, ok := r.users[userID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}

	prev := u.Status
	u.Status = status
	if err := r.persist(); err != nil {
		u.Status = prev
		r.mu.Unlock()
		return nil, fmt.Errorf("persist status: %w", err)
	}

	out := *u
	r.mu.Unlock()

	r.broadcast(model.EventUserUpdated, model.UserUpdatedPayload{User: out})
	return &out, nil
}

// ListUsers returns all users sorted by id.
func (r *Room) ListUsers() []model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// GetUser returns one user by id.
func (r *Room) GetUser(userID string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	out := *u
	return &out, nil
}
