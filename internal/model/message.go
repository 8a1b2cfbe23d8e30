package model

// DefaultConversationID is the single global conversation all messages
// belong to. Multi-room partitioning is out of scope.
const DefaultConversationID = "global"

// DeliveryStatus is client-side bookkeeping for optimistic sends. It is
// carried on the wire for symmetry but never persisted by the server.
type DeliveryStatus string

const (
	DeliverySending   DeliveryStatus = "sending"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryRead      DeliveryStatus = "read"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Reaction groups all users who applied one emoji to a message. Count always
// equals len(UserIDs); an emoji with no remaining users has no entry at all.
type Reaction struct {
	Emoji   string   `json:"emoji"`
	Count   int      `json:"count"`
	UserIDs []string `json:"userIds"`
}

// Message represents a single chat message.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversationId"`
	SenderID       string         `json:"senderId"`
	Content        string         `json:"content"`
	Timestamp      int64          `json:"timestamp"` // epoch millis; ties broken by ID
	ReplyToID      string         `json:"replyToId,omitempty"`
	Reactions      []Reaction     `json:"reactions,omitempty"`
	Mentions       []string       `json:"mentions,omitempty"`
	EditedAt       int64          `json:"editedAt,omitempty"`
	EditHistory    []string       `json:"editHistory,omitempty"`
	Status         DeliveryStatus `json:"status,omitempty"` // client-only
}

// HasReaction reports whether userID has applied emoji to the message.
func (m *Message) HasReaction(emoji, userID string) bool {
	for _, r := range m.Reactions {
		if r.Emoji != emoji {
			continue
		}
		for _, id := range r.UserIDs {
			if id == userID {
				return true
			}
		}
	}
	return false
}

// ToggleReaction flips userID's membership in the emoji's reaction entry.
// No entry: one is created holding just this user. Member: the user is
// removed, and the entry disappears when its user set empties. Non-member:
// the user is appended. The same state machine runs on the server and in the
// client reducer's optimistic path so both converge on identical state.
func (m *Message) ToggleReaction(emoji, userID string) {
	for i := range m.Reactions {
		r := &m.Reactions[i]
		if r.Emoji != emoji {
			continue
		}
		for j, id := range r.UserIDs {
			if id == userID {
				r.UserIDs = append(r.UserIDs[:j], r.UserIDs[j+1:]...)
				r.Count = len(r.UserIDs)
				if r.Count == 0 {
					m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
				}
				return
			}
		}
		r.UserIDs = append(r.UserIDs, userID)
		r.Count = len(r.UserIDs)
		return
	}
	m.Reactions = append(m.Reactions, Reaction{
		Emoji:   emoji,
		Count:   1,
		UserIDs: []string{userID},
	})
}

// Clone returns a deep copy of the message. The reducer works on copies so
// a View can be treated as an immutable snapshot.
func (m Message) Clone() Message {
	out := m
	if m.Reactions != nil {
		out.Reactions = make([]Reaction, len(m.Reactions))
		for i, r := range m.Reactions {
			out.Reactions[i] = r
			out.Reactions[i].UserIDs = append([]string(nil), r.UserIDs...)
		}
	}
	if m.Mentions != nil {
		out.Mentions = append([]string(nil), m.Mentions...)
	}
	if m.EditHistory != nil {
		out.EditHistory = append([]string(nil), m.EditHistory...)
	}
	return out
}

// Before reports whether m sorts ahead of other in the canonical
// (timestamp, id) display order.
func (m *Message) Before(other *Message) bool {
	if m.Timestamp != other.Timestamp {
		return m.Timestamp < other.Timestamp
	}
	return m.ID < other.ID
}

// CreateMessageRequest is the request to post a new message.
type CreateMessageRequest struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversationId,omitempty"`
	ReplyToID      string `json:"replyToId,omitempty"`
}

// EditMessageRequest is the request to edit an existing message.
type EditMessageRequest struct {
	Content string `json:"content"`
}

// ToggleReactionRequest is the request to toggle an emoji reaction.
type ToggleReactionRequest struct {
	Emoji string `json:"emoji"`
}

// CreateMessageResponse carries the created message plus the sender's public
// record, so a client that has never seen this sender needs no extra lookup.
type CreateMessageResponse struct {
	Message Message `json:"message"`
	User    User    `json:"user"`
}

// DeleteMessageResponse carries the full cascade set of deleted ids.
type DeleteMessageResponse struct {
	DeletedMessageIDs []string `json:"deletedMessageIds"`
}

// ListMessagesResponse is the response for listing messages. Users contains
// the senders of the returned window.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	Users    []User    `json:"users"`
	HasMore  bool      `json:"hasMore"`
}

// SetTypingRequest is the request to start or stop the typing indicator.
type SetTypingRequest struct {
	Typing bool `json:"typing"`
}

// TypingResponse is the response for the typing snapshot.
type TypingResponse struct {
	TypingUsers []string `json:"typingUsers"`
}
