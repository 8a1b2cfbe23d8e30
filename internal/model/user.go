// Package model defines data structures for the chat room.
package model

// Status represents a user's presence status.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusBusy    Status = "busy"
)

// Valid reports whether s is a known presence status.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusBusy:
		return true
	}
	return false
}

// User represents a chat room participant, human or agent.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar,omitempty"`
	IsAgent bool   `json:"isAgent,omitempty"`
	Status  Status `json:"status"`
}

// UpdateStatusRequest is the request to change the caller's presence status.
type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

// ListUsersResponse is the response for listing users.
type ListUsersResponse struct {
	Users []User `json:"users"`
}
