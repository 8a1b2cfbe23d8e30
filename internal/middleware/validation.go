package middleware

import (
	"errors"

	"github.com/google/uuid"
)

// ValidateMessageID validates a message ID path parameter.
func ValidateMessageID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid message ID format")
	}
	return nil
}

// ValidateAgentID validates an agent ID path parameter. Agent ids are
// registry slugs, not UUIDs.
func ValidateAgentID(id string) error {
	if id == "" {
		return errors.New("agent ID cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("agent ID exceeds maximum length")
	}
	return nil
}
