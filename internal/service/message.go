package service

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agorachat/agora/internal/model"
	"github.com/agorachat/agora/pkg/metrics"
)

const maxContentLength = 100000 // ~100KB

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content cannot be empty", ErrValidation)
	}
	if len(content) > maxContentLength {
		return fmt.Errorf("%w: content exceeds maximum length", ErrValidation)
	}
	if !utf8.ValidString(content) {
		return fmt.Errorf("%w: content must be valid UTF-8", ErrValidation)
	}
	return nil
}

func validateEmoji(emoji string) error {
	if emoji == "" {
		return fmt.Errorf("%w: emoji cannot be empty", ErrValidation)
	}
	if utf8.RuneCountInString(emoji) > 8 {
		return fmt.Errorf("%w: emoji too long", ErrValidation)
	}
	if !utf8.ValidString(emoji) {
		return fmt.Errorf("%w: emoji must be valid UTF-8", ErrValidation)
	}
	return nil
}

// CreateMessage validates and commits a new message, then broadcasts
// message:created. The returned response carries the sender's public record
// so receivers can render an unknown sender without a lookup.
func (r *Room) CreateMessage(senderID string, req *model.CreateMessageRequest) (*model.CreateMessageResponse, error) {
	if err := validateContent(req.Content); err != nil {
		return nil, err
	}

	r.mu.Lock()
	sender, ok := r.users[senderID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: unknown sender", ErrNotFound)
	}
	if req.ReplyToID != "" {
		if _, ok := r.messages[req.ReplyToID]; !ok {
			r.mu.Unlock()
			return nil, fmt.Errorf("%w: reply target does not exist", ErrNotFound)
		}
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = model.DefaultConversationID
	}

	msg := &model.Message{
		ID:             r.newID(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        req.Content,
		Timestamp:      r.nowMillis(),
		ReplyToID:      req.ReplyToID,
		Mentions:       r.extractMentions(req.Content),
	}
	r.messages[msg.ID] = msg

	if err := r.persist(); err != nil {
		delete(r.messages, msg.ID)
		r.mu.Unlock()
		return nil, fmt.Errorf("persist message: %w", err)
	}

	resp := &model.CreateMessageResponse{Message: msg.Clone(), User: *sender}
	r.mu.Unlock()

	senderKind := "user"
	if resp.User.IsAgent {
		senderKind = "agent"
	}
	metrics.MessagesTotal.WithLabelValues(senderKind).Inc()

	r.broadcast(model.EventMessageCreated, model.MessageCreatedPayload{
		Message: resp.Message,
		Users:   []model.User{resp.User},
	})

	return resp, nil
}

// EditMessage replaces an owned message's content, keeping the prior content
// in the edit history, and broadcasts message:updated.
func (r *Room) EditMessage(messageID, requesterID string, req *model.EditMessageRequest) (*model.Message, error) {
	if err := validateContent(req.Content); err != nil {
		return nil, err
	}

	r.mu.Lock()
	msg, ok := r.messages[messageID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}
	if msg.SenderID != requesterID {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: only the sender can edit a message", ErrForbidden)
	}

	prev := *msg
	msg.EditHistory = append(msg.EditHistory, msg.Content)
	msg.Content = req.Content
	msg.EditedAt = r.nowMillis()
	msg.Mentions = r.extractMentions(req.Content)

	if err := r.persist(); err != nil {
		*msg = prev
		r.mu.Unlock()
		return nil, fmt.Errorf("persist edit: %w", err)
	}

	updated := msg.Clone()
	r.mu.Unlock()

	r.broadcast(model.EventMessageUpdated, model.MessageUpdatedPayload{Message: updated})
	return &updated, nil
}

// DeleteMessage removes an owned message together with its direct replies
// and broadcasts message:deleted with the full cascade set. The cascade is
// deliberately shallow: replies-to-replies are kept, matching the product's
// one-level threading.
func (r *Room) DeleteMessage(messageID, requesterID string) ([]string, error) {
	r.mu.Lock()
	msg, ok := r.messages[messageID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}
	if msg.SenderID != requesterID {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: only the sender can delete a message", ErrForbidden)
	}

	deleted := []string{messageID}
	for id, m := range r.messages {
		if m.ReplyToID == messageID {
			deleted = append(deleted, id)
		}
	}
	sort.Strings(deleted[1:])

	removed := make(map[string]*model.Message, len(deleted))
	for _, id := range deleted {
		removed[id] = r.messages[id]
		delete(r.messages, id)
	}

	if err := r.persist(); err != nil {
		for id, m := range removed {
			r.messages[id] = m
		}
		r.mu.Unlock()
		return nil, fmt.Errorf("persist delete: %w", err)
	}
	r.mu.Unlock()

	metrics.MessagesDeleted.Add(float64(len(deleted)))
	r.broadcast(model.EventMessageDeleted, model.MessageDeletedPayload{MessageIDs: deleted})

	return deleted, nil
}

// ToggleReaction flips the requester's emoji on a message and broadcasts
// message:updated with the canonical result. There is no "set" operation;
// callers needing a guaranteed end state must inspect the returned message.
func (r *Room) ToggleReaction(messageID, userID, emoji string) (*model.Message, error) {
	if err := validateEmoji(emoji); err != nil {
		return nil, err
	}

	r.mu.Lock()
	msg, ok := r.messages[messageID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}
	if _, ok := r.users[userID]; !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: unknown user", ErrNotFound)
	}

	prev := msg.Clone()
	msg.ToggleReaction(emoji, userID)
	added := msg.HasReaction(emoji, userID)

	if err := r.persist(); err != nil {
		*msg = prev
		r.mu.Unlock()
		return nil, fmt.Errorf("persist reaction: %w", err)
	}

	updated := msg.Clone()
	r.mu.Unlock()

	op := "remove"
	if added {
		op = "add"
	}
	metrics.ReactionsTotal.WithLabelValues(op).Inc()

	r.broadcast(model.EventMessageUpdated, model.MessageUpdatedPayload{Message: updated})
	return &updated, nil
}

// ListMessages returns a paged window of messages in (timestamp, id) order,
// plus the senders appearing in it. A zero limit gets the default window.
// since filters to messages strictly newer than the given epoch-millis
// instant (the agent poller's cursor); before bounds the window from above
// for backwards pagination.
func (r *Room) ListMessages(since, before int64, limit int) *model.ListMessagesResponse {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	r.mu.Lock()
	all := make([]model.Message, 0, len(r.messages))
	for _, m := range r.messages {
		if since > 0 && m.Timestamp <= since {
			continue
		}
		if before > 0 && m.Timestamp >= before {
			continue
		}
		all = append(all, m.Clone())
	}
	r.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Before(&all[j]) })

	// Newest-first window: keep the tail, return it in ascending order.
	hasMore := len(all) > limit
	if hasMore {
		all = all[len(all)-limit:]
	}

	users := r.sendersOf(all)

	return &model.ListMessagesResponse{
		Messages: all,
		Users:    users,
		HasMore:  hasMore,
	}
}

// GetMessage returns one message by id.
func (r *Room) GetMessage(messageID string) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}
	m := msg.Clone()
	return &m, nil
}

func (r *Room) sendersOf(msgs []model.Message) []model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool, len(msgs))
	users := make([]model.User, 0, len(msgs))
	for _, m := range msgs {
		if seen[m.SenderID] {
			continue
		}
		seen[m.SenderID] = true
		if u, ok := r.users[m.SenderID]; ok {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}
