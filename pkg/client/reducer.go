package client

import "github.com/agorachat/agora/internal/model"

// Apply folds one action into the view and returns the successor state. It
// is a pure function: the input view is never mutated, and applying the same
// action to the same view always yields the same result.
func Apply(v View, action Action) View {
	switch a := action.(type) {
	case Hydrate:
		return applyHydrate(v, a)
	case UpsertMessages:
		return applyUpsertMessages(v, a.Messages)
	case UpdateMessage:
		return applyUpsertMessages(v, []model.Message{a.Message})
	case DeleteMessages:
		return applyDeleteMessages(v, a.IDs)
	case ToggleReaction:
		return applyToggleReaction(v, a)
	case SetMessageStatus:
		return applySetMessageStatus(v, a)
	case SetReplyingTo:
		v.ReplyingTo = a.Message
		return v
	case UpsertUsers:
		users := v.cloneUsers()
		for _, u := range a.Users {
			users[u.ID] = u
		}
		v.Users = users
		return v
	case SetTyping:
		v.TypingUsers = append([]string(nil), a.UserIDs...)
		return v
	case SetLookingAgents:
		v.LookingAgents = append([]model.AgentPresence(nil), a.Agents...)
		return v
	default:
		return v
	}
}

func applyHydrate(v View, a Hydrate) View {
	v.Users = make(map[string]model.User, len(a.Users))
	for _, u := range a.Users {
		v.Users[u.ID] = u
	}
	v.Messages = make(map[string]model.Message, len(a.Messages))
	for _, m := range a.Messages {
		v.Messages[m.ID] = m.Clone()
	}
	v.AuthStatus = AuthAuthenticated
	v.resort()
	return v
}

func applyUpsertMessages(v View, msgs []model.Message) View {
	if len(msgs) == 0 {
		return v
	}
	messages := v.cloneMessages()
	for _, m := range msgs {
		messages[m.ID] = m.Clone()
	}
	v.Messages = messages
	v.resort()
	return v
}

func applyDeleteMessages(v View, ids []string) View {
	if len(ids) == 0 {
		return v
	}
	messages := v.cloneMessages()
	for _, id := range ids {
		delete(messages, id)
		if v.ReplyingTo != nil && v.ReplyingTo.ID == id {
			v.ReplyingTo = nil
		}
	}
	v.Messages = messages
	v.resort()
	return v
}

func applyToggleReaction(v View, a ToggleReaction) View {
	msg, ok := v.Messages[a.MessageID]
	if !ok {
		// Local view is stale; the authoritative update will not be.
		return v
	}
	updated := msg.Clone()
	updated.ToggleReaction(a.Emoji, a.UserID)

	messages := v.cloneMessages()
	messages[a.MessageID] = updated
	v.Messages = messages
	return v
}

func applySetMessageStatus(v View, a SetMessageStatus) View {
	msg, ok := v.Messages[a.MessageID]
	if !ok {
		return v
	}
	updated := msg.Clone()
	updated.Status = a.Status

	messages := v.cloneMessages()
	messages[a.MessageID] = updated
	v.Messages = messages
	return v
}
