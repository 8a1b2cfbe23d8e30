package agent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agorachat/agora/internal/model"
)

func TestStripSpecialTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "hello there", "hello there"},
		{"empty", "", ""},
		{
			"final channel extracted",
			"<|channel|>analysis<|message|>pondering<|end|><|channel|>final<|message|>the answer<|end|>",
			"the answer",
		},
		{
			"unterminated final channel",
			"<|channel|>final<|message|>still the answer",
			"still the answer",
		},
		{
			"think block removed",
			"<think>internal monologue</think>visible reply",
			"visible reply",
		},
		{
			"stray control tags removed",
			"before <|start|> after",
			"before  after",
		},
		{
			"blank runs collapsed",
			"one\n\n\n\ntwo",
			"one\n\ntwo",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripSpecialTags(tt.in))
		})
	}
}

func TestIsMentioned(t *testing.T) {
	users := []model.User{
		{ID: "user-helper-agent-1", Name: "Helper", IsAgent: true},
		{ID: "alice", Name: "Alice"},
	}

	resolved := &model.Message{Content: "hey there", Mentions: []string{"user-helper-agent-1"}}
	assert.True(t, IsMentioned(resolved, users, "user-helper-agent-1"))

	literal := &model.Message{Content: "ping @Helper please"}
	assert.True(t, IsMentioned(literal, users, "user-helper-agent-1"))

	unrelated := &model.Message{Content: "just chatting", Mentions: []string{"alice"}}
	assert.False(t, IsMentioned(unrelated, users, "user-helper-agent-1"))
}

func TestBuildContextFraming(t *testing.T) {
	users := []model.User{
		{ID: "alice", Name: "Alice"},
		{ID: "user-helper-agent-1", Name: "Helper", IsAgent: true},
	}
	messages := []model.Message{
		{ID: "m1", SenderID: "alice", Content: "earlier chatter"},
		{ID: "m2", SenderID: "user-helper-agent-1", Content: "my previous reply"},
		{ID: "m3", SenderID: "alice", Content: "@Helper what time is it?"},
	}

	turns := BuildContext(messages, users, &messages[2], "user-helper-agent-1")
	require.Len(t, turns, 3)

	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "<Name: Alice>: earlier chatter", turns[0].Content)

	assert.Equal(t, "assistant", turns[1].Role)
	assert.Equal(t, "my previous reply", turns[1].Content)

	// The trigger is flagged and its mention tag is stripped.
	assert.Equal(t, "user", turns[2].Role)
	assert.Equal(t, "<Name: Alice> [asking you]: what time is it?", turns[2].Content)
}

func TestBuildContextWindowsRecentMessages(t *testing.T) {
	users := []model.User{{ID: "alice", Name: "Alice"}}
	var messages []model.Message
	for i := 0; i < contextWindow+5; i++ {
		messages = append(messages, model.Message{
			ID:       fmt.Sprintf("m%02d", i),
			SenderID: "alice",
			Content:  fmt.Sprintf("message %d", i),
		})
	}

	turns := BuildContext(messages, users, &messages[len(messages)-1], "user-helper-agent-1")
	require.Len(t, turns, contextWindow)
	assert.Contains(t, turns[0].Content, "message 5")
}

func TestBuildContextUnknownSenderFallsBack(t *testing.T) {
	messages := []model.Message{{ID: "m1", SenderID: "stranger", Content: "hello?"}}
	turns := BuildContext(messages, nil, &messages[0], "user-helper-agent-1")
	require.Len(t, turns, 1)
	assert.Equal(t, "<Name: User> [asking you]: hello?", turns[0].Content)
}
