package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hongminglow/farmconnect/internal/http/respond"
	"github.com/hongminglow/farmconnect/internal/middleware"
	"github.com/hongminglow/farmconnect/internal/models/dto"
	"github.com/hongminglow/farmconnect/internal/services"
)

// MessagesHandler serves the inbox and per-counterpart conversations.
type MessagesHandler struct {
	messages *services.Messages
}

func NewMessagesHandler(messages *services.Messages) *MessagesHandler {
	return &MessagesHandler{messages: messages}
}

func (h *MessagesHandler) Register(r *mux.Router, gate *middleware.Gate) {
	r.HandleFunc("/messages", gate.Protect(h.inbox)).Methods(http.MethodGet)
	r.HandleFunc("/messages/{counterpart}", gate.Protect(h.conversation)).Methods(http.MethodGet)
	r.HandleFunc("/messages/{counterpart}", gate.Protect(h.send)).Methods(http.MethodPost)
	r.HandleFunc("/messages/{counterpart}/read", gate.Protect(h.markRead)).Methods(http.MethodPost)
}

func (h *MessagesHandler) inbox(w http.ResponseWriter, r *http.Request) {
	convs, err := h.messages.Inbox(r.Context(), currentUser(r).ID)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "inbox", convs)
}

func (h *MessagesHandler) conversation(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	result, err := h.messages.Conversation(r.Context(), currentUser(r).ID, mux.Vars(r)["counterpart"], page, size)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "conversation", result)
}

func (h *MessagesHandler) send(w http.ResponseWriter, r *http.Request) {
	var req dto.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := h.messages.Send(r.Context(), currentUser(r).ID, mux.Vars(r)["counterpart"], req.Content)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "Message sent", msg)
}

func (h *MessagesHandler) markRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.messages.MarkRead(r.Context(), currentUser(r).ID, mux.Vars(r)["counterpart"])
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Messages marked read", map[string]int{"updated": n})
}
