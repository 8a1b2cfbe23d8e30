// Package main is the entry point for the chat room server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/agorachat/agora/internal/bus"
	"github.com/agorachat/agora/internal/config"
	"github.com/agorachat/agora/internal/handler"
	"github.com/agorachat/agora/internal/middleware"
	"github.com/agorachat/agora/internal/model"
	"github.com/agorachat/agora/internal/service"
	"github.com/agorachat/agora/internal/store"
	"github.com/agorachat/agora/internal/ws"
	"github.com/agorachat/agora/pkg/logger"
	"github.com/agorachat/agora/pkg/tracing"
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

	log.Info("starting room server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "agora", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Durable store
	st, err := openStore(cfg)
	if err != nil {
		log.Error("failed to open store", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	// Broadcast bus
	var eventBus bus.Bus
	var broker handler.Readiness
	if cfg.BusBackend == "nats" {
		natsBus, err := bus.Connect(bus.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		eventBus = natsBus
		broker = natsBus
	} else {
		eventBus = bus.NewMemoryBus()
	}
	defer eventBus.Close()

	// Room service
	room, err := service.New(st, eventBus, cfg.PresenceTTL, log)
	if err != nil {
		log.Error("failed to initialize room", zap.Error(err))
		os.Exit(1)
	}

	if err := room.SeedAgents(defaultAgents(cfg)); err != nil {
		log.Error("failed to seed agents", zap.Error(err))
		os.Exit(1)
	}

	// Websocket fan-out
	hub, err := ws.NewHub(eventBus, log)
	if err != nil {
		log.Error("failed to create websocket hub", zap.Error(err))
		os.Exit(1)
	}
	defer hub.Close()
	wsHandler := ws.NewHandler(hub, room, log)

	// Handlers
	healthHandler := handler.NewHealthHandler(broker)
	messageHandler := handler.NewMessageHandler(room, log)
	userHandler := handler.NewUserHandler(room, log)
	presenceHandler := handler.NewPresenceHandler(room, log)
	agentHandler := handler.NewAgentHandler(room, log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Agent-Token"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Agent surface: static token auth, no rate limit (agents poll
		// every second).
		r.Group(func(r chi.Router) {
			r.Use(middleware.AgentToken(cfg.AgentAPIToken))
			r.Post("/agents/{id}/heartbeat", agentHandler.Heartbeat)
			r.Post("/agents/{id}/messages", agentHandler.CreateMessage)
			r.Get("/agents", agentHandler.List)
		})

		// Message history is read by both humans and agent pollers.
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthOrAgent(cfg.JWTSecret, cfg.AgentAPIToken))
			r.Use(handler.Register(room, log))
			r.Get("/messages", messageHandler.List)
		})

		// User surface: JWT auth.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Use(handler.Register(room, log))
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			r.Post("/messages", messageHandler.Create)
			r.Put("/messages/{id}", messageHandler.Edit)
			r.Delete("/messages/{id}", messageHandler.Delete)
			r.Post("/messages/{id}/reactions", messageHandler.React)

			r.Get("/users", userHandler.List)
			r.Put("/users/me/status", userHandler.UpdateStatus)

			r.Post("/typing", presenceHandler.SetTyping)
			r.Get("/typing", presenceHandler.GetTyping)
			r.Get("/agents/looking", presenceHandler.GetLooking)
		})
	})

	// Event surface
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(handler.Register(room, log))
		r.Get("/ws", wsHandler.ServeHTTP)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func defaultAgents(cfg *config.Config) []model.AgentConfig {
	provider := "openai"
	if cfg.AnthropicAPIKey != "" {
		provider = "anthropic"
	}
	return []model.AgentConfig{
		{
			ID:     cfg.AgentID,
			UserID: "user-" + cfg.AgentID,
			Name:   "Helper",
			Model: model.AgentModel{
				Provider:    provider,
				Temperature: 0.7,
				MaxTokens:   1024,
			},
		},
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "pebble":
		return store.NewPebbleStore(cfg.StorePath)
	case "file", "":
		return store.NewFileStore(cfg.StorePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
