package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hongminglow/farmconnect/internal/http/respond"
	"github.com/hongminglow/farmconnect/internal/middleware"
	"github.com/hongminglow/farmconnect/internal/models/dto"
	"github.com/hongminglow/farmconnect/internal/services"
)

// AlertsHandler manages the signed-in user's price alerts.
type AlertsHandler struct {
	alerts *services.Alerts
}

func NewAlertsHandler(alerts *services.Alerts) *AlertsHandler {
	return &AlertsHandler{alerts: alerts}
}

func (h *AlertsHandler) Register(r *mux.Router, gate *middleware.Gate) {
	r.HandleFunc("/alerts", gate.Protect(h.list)).Methods(http.MethodGet)
	r.HandleFunc("/alerts", gate.Protect(h.create)).Methods(http.MethodPost)
	r.HandleFunc("/alerts/{id}", gate.Protect(h.toggle)).Methods(http.MethodPatch)
}

func (h *AlertsHandler) list(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alerts.List(r.Context(), currentUser(r).ID)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "alerts", alerts)
}

func (h *AlertsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAlertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	alert, err := h.alerts.Create(r.Context(), currentUser(r).ID, req.Product, req.MinPrice, req.MaxPrice)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "Alert created", alert)
}

func (h *AlertsHandler) toggle(w http.ResponseWriter, r *http.Request) {
	var req dto.ToggleAlertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	alert, err := h.alerts.SetActive(r.Context(), currentUser(r).ID, mux.Vars(r)["id"], req.Active)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Alert updated", alert)
}
