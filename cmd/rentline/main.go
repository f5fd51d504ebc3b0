package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appchat "rentline/internal/app/services/chat"
	domainchat "rentline/internal/domain/chat"
	"rentline/internal/infra/broker/kafka"
	"rentline/internal/infra/config"
	mongodb "rentline/internal/infra/db/mongo"
	ginserver "rentline/internal/infra/http/gin"
	"rentline/internal/infra/obs"
	"rentline/internal/infra/outbox"
	"rentline/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
		cfg.StorageMode = config.StorageMemory
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, err := buildApplication(cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if app.worker != nil {
		go func() {
			if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		app.close(shutdownCtx, logger)
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	worker   *outbox.Worker
	ready    func() error
	closers  []func(ctx context.Context) error
}

func buildApplication(cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{ready: func() error { return nil }}
	service := &appchat.Service{Logger: logger}

	switch cfg.StorageMode {
	case config.StorageMemory:
		conversations := memory.NewConversationStore()
		messages := memory.NewMessageStore()
		identity := memory.NewIdentityGate()
		listings := memory.NewListingDirectory()
		if path := getenv("CHAT_FIXTURES", ""); path != "" {
			if err := loadFixtures(path, identity, listings); err != nil {
				logger.Warn("fixtures load failed", "error", err, "path", path)
			}
		}
		service.Conversations = conversations
		service.Messages = messages
		service.Identity = identity
		service.Listings = listings
		app.handlers.AuthMiddleware = ginserver.AuthMiddleware{Gate: identity, Logger: logger}.Handle

	case config.StorageMongo:
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		app.closers = append(app.closers, client.Close)
		app.ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		identity := mongodb.NewIdentityGate(client.DB)
		service.Conversations = mongodb.NewConversationRepository(client.DB)
		service.Messages = mongodb.NewMessageRepository(client.DB)
		service.Identity = identity
		service.Listings = mongodb.NewListingDirectory(client.DB)
		app.handlers.AuthMiddleware = ginserver.AuthMiddleware{Gate: identity, Logger: logger}.Handle

		if len(cfg.KafkaBrokers) > 0 {
			producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
			if err != nil {
				return nil, fmt.Errorf("connect kafka: %w", err)
			}
			app.closers = append(app.closers, func(context.Context) error { return producer.Close() })
			store := outbox.NewStore(client.DB)
			service.Events = store
			app.worker = &outbox.Worker{
				Store:       store,
				Producer:    producer,
				Logger:      logger,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
			}
		}

	default:
		return nil, fmt.Errorf("unsupported storage mode %q", cfg.StorageMode)
	}

	app.handlers.Chat = ginserver.ChatHandler{Service: service, Logger: logger}
	return app, nil
}

func (a *application) close(ctx context.Context, logger *slog.Logger) {
	for _, closer := range a.closers {
		if err := closer(ctx); err != nil {
			logger.Error("shutdown cleanup failed", "error", err)
		}
	}
}

type fixtureFile struct {
	Users []struct {
		ID      string `json:"id"`
		Token   string `json:"token"`
		Support bool   `json:"support"`
	} `json:"users"`
	Listings []struct {
		ID     string `json:"id"`
		HostID string `json:"host_id"`
	} `json:"listings"`
}

// loadFixtures seeds demo identities and listings in memory mode.
func loadFixtures(path string, identity *memory.IdentityGate, listings *memory.ListingDirectory) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures fixtureFile
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	for _, user := range fixtures.Users {
		if user.Token != "" {
			identity.AddSession(user.Token, domainchat.UserID(user.ID))
		}
		identity.SetPrivileged(domainchat.UserID(user.ID), user.Support)
	}
	for _, listing := range fixtures.Listings {
		listings.AddListing(domainchat.ListingID(listing.ID), domainchat.UserID(listing.HostID))
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
