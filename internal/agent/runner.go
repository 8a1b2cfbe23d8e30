package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agorachat/agora/internal/llm"
	"github.com/agorachat/agora/internal/model"
	"github.com/agorachat/agora/pkg/logger"
	"github.com/agorachat/agora/pkg/metrics"
)

const defaultSystemPrompt = "You are a helpful AI assistant in a group chat. " +
	"Respond directly and concisely to the user's message. " +
	"Do NOT include any prefix like your name in responses. " +
	"Be friendly and helpful. You may respond in the user's language."

// Options configure a Runner.
type Options struct {
	AgentID           string
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	AnthropicAPIKey   string
	OpenAIAPIKey      string
}

// Runner polls the room and replies when its agent is mentioned. Replies are
// delivered through the same message-creation contract as human posts.
type Runner struct {
	api    *APIClient
	opts   Options
	logger *logger.Logger

	config    *model.AgentConfig
	llmClient llm.Client

	lastSeen  int64
	processed map[string]bool
}

// NewRunner creates an agent runner.
func NewRunner(api *APIClient, opts Options, log *logger.Logger) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 5 * time.Second
	}
	return &Runner{
		api:       api,
		opts:      opts,
		logger:    log,
		lastSeen:  time.Now().UnixMilli(),
		processed: make(map[string]bool),
	}
}

// loadConfig fetches the agent's registry entry and builds the LLM client
// for its configured provider.
func (r *Runner) loadConfig(ctx context.Context) error {
	agents, err := r.api.FetchAgents(ctx)
	if err != nil {
		return fmt.Errorf("fetch agent registry: %w", err)
	}
	for i := range agents {
		if agents[i].ID != r.opts.AgentID {
			continue
		}
		r.config = &agents[i]

		key := r.opts.AnthropicAPIKey
		if r.config.Model.Provider == "openai" {
			key = r.opts.OpenAIAPIKey
		}
		client, err := llm.NewClient(r.config.Model.Provider, key)
		if err != nil {
			return fmt.Errorf("create %s client: %w", r.config.Model.Provider, err)
		}
		r.llmClient = client
		return nil
	}
	return fmt.Errorf("agent %q not found in registry", r.opts.AgentID)
}

// Run polls until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.loadConfig(ctx); err != nil {
		return err
	}

	r.logger.Info("agent runner started",
		zap.String("agent_id", r.opts.AgentID),
		zap.String("provider", r.config.Model.Provider),
		zap.String("model", r.config.Model.Name),
		zap.Duration("poll_interval", r.opts.PollInterval),
	)

	go r.heartbeatLoop(ctx)

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.poll(ctx); err != nil {
				r.logger.Warn("poll failed", zap.Error(err))
			}
		}
	}
}

func (r *Runner) heartbeatLoop(ctx context.Context) {
	// First beat immediately so the room shows the agent looking without
	// waiting a full interval.
	if err := r.api.Heartbeat(ctx, r.opts.AgentID); err != nil {
		r.logger.Warn("heartbeat failed", zap.Error(err))
	}

	ticker := time.NewTicker(r.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.api.Heartbeat(ctx, r.opts.AgentID); err != nil {
				r.logger.Warn("heartbeat failed", zap.Error(err))
			}
		}
	}
}

func (r *Runner) poll(ctx context.Context) error {
	resp, err := r.api.FetchMessages(ctx, r.lastSeen)
	if err != nil {
		return err
	}
	if len(resp.Messages) == 0 {
		return nil
	}

	for i := range resp.Messages {
		msg := &resp.Messages[i]
		if msg.Timestamp <= r.lastSeen || r.processed[msg.ID] {
			continue
		}
		r.processMessage(ctx, msg, resp.Messages, resp.Users)
	}

	for _, msg := range resp.Messages {
		if msg.Timestamp > r.lastSeen {
			r.lastSeen = msg.Timestamp
		}
	}
	return nil
}

func (r *Runner) processMessage(ctx context.Context, msg *model.Message, history []model.Message, users []model.User) {
	if msg.SenderID == r.config.UserID {
		return
	}
	if !IsMentioned(msg, users, r.config.UserID) {
		return
	}

	r.logger.Info("mentioned in message",
		zap.String("message_id", msg.ID),
		zap.String("sender_id", msg.SenderID),
	)

	// Refresh the registry entry so prompt/model changes apply without a
	// restart.
	if err := r.loadConfig(ctx); err != nil {
		r.logger.Warn("config refresh failed, using cached config", zap.Error(err))
	}

	// The poll cursor only carries messages newer than lastSeen; fetch a
	// fresh window so the model sees conversation leading up to the trigger.
	if window, err := r.api.FetchMessages(ctx, 0); err == nil {
		history = window.Messages
		users = window.Users
	}

	reply, err := r.generateReply(ctx, BuildContext(history, users, msg, r.config.UserID))
	if err != nil {
		r.logger.Error("reply generation failed", zap.Error(err))
		reply = fmt.Sprintf("Sorry, I ran into a problem: %v", err)
	}
	if reply == "" {
		return
	}

	if err := r.api.SendMessage(ctx, r.opts.AgentID, reply, msg.ID); err != nil {
		r.logger.Error("failed to send reply", zap.Error(err))
		return
	}
	r.processed[msg.ID] = true
}

func (r *Runner) generateReply(ctx context.Context, turns []llm.ChatMessage) (string, error) {
	system := r.config.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}

	start := time.Now()
	resp, err := r.llmClient.Complete(ctx, &llm.CompletionRequest{
		Model:       r.config.Model.Name,
		System:      system,
		Messages:    turns,
		MaxTokens:   r.config.Model.MaxTokens,
		Temperature: r.config.Model.Temperature,
	})
	if err != nil {
		metrics.RecordLLMRequest(r.config.Model.Name, "error", time.Since(start).Seconds(), 0, 0)
		return "", err
	}

	metrics.RecordLLMRequest(resp.Model, "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
	return StripSpecialTags(resp.Content), nil
}
