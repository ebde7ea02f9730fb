package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hongminglow/farmconnect/internal/auth"
	"github.com/hongminglow/farmconnect/internal/backend"
	"github.com/hongminglow/farmconnect/internal/cache"
	"github.com/hongminglow/farmconnect/internal/config"
	"github.com/hongminglow/farmconnect/internal/notify"
	"github.com/hongminglow/farmconnect/internal/server"
	"github.com/hongminglow/farmconnect/internal/services"
	"github.com/hongminglow/farmconnect/internal/session"
	"github.com/hongminglow/farmconnect/internal/storage"
	"github.com/hongminglow/farmconnect/internal/storage/memory"
	"github.com/hongminglow/farmconnect/internal/storage/postgres"
)

// store is a backend store that can report its health.
type store interface {
	storage.Store
	Ping(ctx context.Context) error
}

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx := context.Background()
	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("init store: %v", err)
	}
	defer db.Close()

	sessions, closeSessions, err := openSessionStore(cfg, logger)
	if err != nil {
		log.Fatalf("init session store: %v", err)
	}
	defer closeSessions()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	client := backend.New(db, db, tokens, sessions, backend.WithLogger(logger))
	feed := notify.NewFeed(50, logger)
	svc := services.New(client)

	sess := session.New(client, svc.Profiles, feed, logger)
	sess.Start(ctx)
	defer sess.Close()
	reportOrphans(ctx, client, logger)

	srv := server.New(cfg, server.Deps{
		Sessions: sess,
		Services: svc,
		Feed:     feed,
		Store:    db,
		Outbox:   client,
		Logger:   logger,
	})

	go func() {
		logger.Info("FarmConnect listening", "addr", cfg.HTTPAddress(), "store", cfg.Store)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("graceful shutdown error", "error", err)
	}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory store; data is lost on exit")
		mem := memory.New()
		if err := seedMarketPrices(mem); err != nil {
			return nil, err
		}
		return mem, nil
	}
	return postgres.NewStore(ctx, cfg.DatabaseURL)
}

func openSessionStore(cfg config.Config, logger *slog.Logger) (cache.SessionStore, func(), error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(), func() {}, nil
	}
	rdb, err := cache.NewRedis(cfg.RedisAddr, cfg.SessionKey)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("persisting session in redis", "addr", cfg.RedisAddr)
	return rdb, func() {
		if err := rdb.Close(); err != nil {
			logger.Error("close redis", "error", err)
		}
	}, nil
}

// seedMarketPrices gives the in-memory store some reference prices, since
// clients cannot write that table.
func seedMarketPrices(mem *memory.Store) error {
	rows := []storage.Row{
		{"product": "Tomatoes", "price": 2.40, "market": "Central Market", "location": "Nairobi"},
		{"product": "Maize", "price": 0.55, "market": "Wakulima", "location": "Nairobi"},
		{"product": "Potatoes", "price": 0.80, "market": "Kongowea", "location": "Mombasa"},
		{"product": "Onions", "price": 1.10, "market": "Kibuye", "location": "Kisumu"},
		{"product": "Beans", "price": 1.35, "market": "Central Market", "location": "Nairobi"},
	}
	return mem.Seed(storage.TableMarketPrices, rows...)
}

// reportOrphans warns about sign-ups left without a profile by an earlier run.
func reportOrphans(ctx context.Context, client *backend.Client, logger *slog.Logger) {
	orphans, err := client.OrphanedIdentities(ctx)
	if err != nil {
		logger.Warn("list orphaned sign-ups", "error", err)
		return
	}
	for _, o := range orphans {
		logger.Warn("sign-up without profile", "identity_id", o.IdentityID, "email", o.Email, "since", o.CreatedAt, "error", o.Error)
	}
}
