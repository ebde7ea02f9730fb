package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/hongminglow/farmconnect/internal/backend"
	"github.com/hongminglow/farmconnect/internal/http/respond"
)

// Pinger checks a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Outbox lists sign-ups whose profile row was never written.
type Outbox interface {
	OrphanedIdentities(ctx context.Context) ([]backend.OrphanedIdentity, error)
}

// HealthHandler returns uptime and basic status.
type HealthHandler struct {
	startedAt time.Time
	store     Pinger
	outbox    Outbox
}

// NewHealthHandler creates a health endpoint handler. store and outbox may be nil.
func NewHealthHandler(startedAt time.Time, store Pinger, outbox Outbox) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, store: store, outbox: outbox}
}

// Register wires the handler into the router.
func (h *HealthHandler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.handle).Methods(http.MethodGet)
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Truncate(time.Second).String(),
	}
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["store"] = err.Error()
			respond.JSON(w, http.StatusServiceUnavailable, "store unreachable", status)
			return
		}
	}
	if h.outbox != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		orphans, err := h.outbox.OrphanedIdentities(ctx)
		if err != nil {
			status["orphaned_signups"] = "unknown"
		} else {
			status["orphaned_signups"] = strconv.Itoa(len(orphans))
		}
	}
	respond.JSON(w, http.StatusOK, "ok", status)
}
