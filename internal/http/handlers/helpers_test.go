package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/farmconnect/internal/auth"
	"github.com/hongminglow/farmconnect/internal/backend"
	"github.com/hongminglow/farmconnect/internal/cache"
	"github.com/hongminglow/farmconnect/internal/config"
	"github.com/hongminglow/farmconnect/internal/notify"
	"github.com/hongminglow/farmconnect/internal/server"
	"github.com/hongminglow/farmconnect/internal/services"
	"github.com/hongminglow/farmconnect/internal/session"
	"github.com/hongminglow/farmconnect/internal/storage"
)

type app struct {
	handler  http.Handler
	sessions *session.Service
	client   *backend.Client
	feed     *notify.Feed
}

type store interface {
	storage.Store
	Ping(ctx context.Context) error
}

func newApp(t *testing.T, db store) *app {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewTokenManager("test-secret", "farmconnect-test", time.Hour)
	client := backend.New(db, db, tokens, cache.NewMemory(), backend.WithHashCost(bcrypt.MinCost), backend.WithLogger(logger))
	feed := notify.NewFeed(0, logger)
	svc := services.New(client)
	sess := session.New(client, svc.Profiles, feed, logger)
	sess.Start(context.Background())
	t.Cleanup(sess.Close)

	cfg := config.Config{CORSOrigins: []string{"*"}}
	handler := server.NewRouter(cfg, server.Deps{
		Sessions: sess,
		Services: svc,
		Feed:     feed,
		Store:    db,
		Outbox:   client,
		Logger:   logger,
	})
	return &app{handler: handler, sessions: sess, client: client, feed: feed}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (a *app) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, want, rec.Body.String())
	}
}
