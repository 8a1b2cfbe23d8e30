package agent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agorachat/agora/internal/llm"
	"github.com/agorachat/agora/internal/model"
)

// contextWindow is how many recent messages frame the conversation for the
// model.
const contextWindow = 10

var (
	finalChannelPattern = regexp.MustCompile(`(?s)<\|channel\|>final<\|message\|>(.*?)(?:<\|end\|>|$)`)
	thinkPattern        = regexp.MustCompile(`(?s)<think>.*?</think>`)
	specialTagPattern   = regexp.MustCompile(`<\|[^>]+\|>`)
	blankRunPattern     = regexp.MustCompile(`\n{3,}`)
	mentionTagPattern   = regexp.MustCompile(`@[\w.\-]+\s*`)
)

// StripSpecialTags extracts the final reply from raw model output, removing
// thinking channels and leftover control tags.
func StripSpecialTags(text string) string {
	if text == "" {
		return ""
	}
	if m := finalChannelPattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	text = thinkPattern.ReplaceAllString(text, "")
	text = specialTagPattern.ReplaceAllString(text, "")
	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// IsMentioned reports whether the message addresses the agent's user, either
// via the server-resolved mentions list or a literal @Name in the content.
func IsMentioned(msg *model.Message, users []model.User, agentUserID string) bool {
	for _, id := range msg.Mentions {
		if id == agentUserID {
			return true
		}
	}
	for _, u := range users {
		if u.ID == agentUserID && u.Name != "" {
			return strings.Contains(msg.Content, "@"+u.Name)
		}
	}
	return false
}

// BuildContext frames the recent conversation for the model. The agent's own
// messages become assistant turns; everyone else's are labeled with the
// sender's name, and the triggering message is flagged as the one to answer.
func BuildContext(messages []model.Message, users []model.User, current *model.Message, agentUserID string) []llm.ChatMessage {
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	recent := messages
	if len(recent) > contextWindow {
		recent = recent[len(recent)-contextWindow:]
	}

	out := make([]llm.ChatMessage, 0, len(recent))
	for _, msg := range recent {
		content := StripSpecialTags(msg.Content)
		// Mention tags have done their job as a trigger.
		content = strings.TrimSpace(mentionTagPattern.ReplaceAllString(content, ""))

		if msg.SenderID == agentUserID {
			out = append(out, llm.ChatMessage{Role: "assistant", Content: content})
			continue
		}

		name := names[msg.SenderID]
		if name == "" {
			name = "User"
		}
		var framed string
		if msg.ID == current.ID {
			framed = fmt.Sprintf("<Name: %s> [asking you]: %s", name, content)
		} else {
			framed = fmt.Sprintf("<Name: %s>: %s", name, content)
		}
		out = append(out, llm.ChatMessage{Role: "user", Content: framed})
	}
	return out
}
