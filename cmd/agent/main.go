// Package main runs a single agent against a room server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/agorachat/agora/internal/agent"
	"github.com/agorachat/agora/internal/config"
	"github.com/agorachat/agora/pkg/logger"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	api := agent.NewAPIClient(cfg.APIBase, cfg.AgentAPIToken)
	runner := agent.NewRunner(api, agent.Options{
		AgentID:           cfg.AgentID,
		PollInterval:      cfg.PollInterval,
		HeartbeatInterval: cfg.HeartbeatInterval,
		AnthropicAPIKey:   cfg.AnthropicAPIKey,
		OpenAIAPIKey:      cfg.OpenAIAPIKey,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("agent runner failed", zap.Error(err))
		os.Exit(1)
	}

	log.Info("agent runner stopped")
}
