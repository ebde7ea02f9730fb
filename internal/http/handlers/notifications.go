package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hongminglow/farmconnect/internal/http/respond"
	"github.com/hongminglow/farmconnect/internal/notify"
)

// Drainer hands over the notices queued since the last call.
type Drainer interface {
	Drain() []notify.Notice
}

// NotificationsHandler lets the UI poll for toast notices.
type NotificationsHandler struct {
	feed Drainer
}

func NewNotificationsHandler(feed Drainer) *NotificationsHandler {
	return &NotificationsHandler{feed: feed}
}

func (h *NotificationsHandler) Register(r *mux.Router) {
	r.HandleFunc("/notifications", h.drain).Methods(http.MethodGet)
}

func (h *NotificationsHandler) drain(w http.ResponseWriter, r *http.Request) {
	notices := h.feed.Drain()
	if notices == nil {
		notices = []notify.Notice{}
	}
	respond.JSON(w, http.StatusOK, "notifications", notices)
}
