package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hongminglow/farmconnect/internal/http/respond"
	"github.com/hongminglow/farmconnect/internal/middleware"
	"github.com/hongminglow/farmconnect/internal/models/dto"
	"github.com/hongminglow/farmconnect/internal/services"
)

// MarketHandler serves the read-only views: dashboard, market prices and
// the buyer directory.
type MarketHandler struct {
	svc services.Set
}

func NewMarketHandler(svc services.Set) *MarketHandler {
	return &MarketHandler{svc: svc}
}

func (h *MarketHandler) Register(r *mux.Router, gate *middleware.Gate) {
	r.HandleFunc(middleware.DashboardPath, gate.Protect(h.dashboard)).Methods(http.MethodGet)
	r.HandleFunc("/market-prices", gate.Protect(h.prices)).Methods(http.MethodGet)
	r.HandleFunc("/buyers", gate.Protect(h.buyers)).Methods(http.MethodGet)
}

func (h *MarketHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Dashboard.Load(r.Context(), currentUser(r))
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "dashboard", data)
}

func (h *MarketHandler) prices(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	result, err := h.svc.Prices.List(r.Context(), page, size, services.PriceFilter{
		Product:  query(r, "product"),
		Market:   query(r, "market"),
		Location: query(r, "location"),
	})
	if err != nil {
		respond.Err(w, err)
		return
	}
	products, err := h.svc.Prices.Products(r.Context())
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "market prices", dto.MarketPricesResponse{Page: result, Products: products})
}

func (h *MarketHandler) buyers(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	result, err := h.svc.Profiles.Buyers(r.Context(), page, size, services.BuyerFilter{
		Location: query(r, "location"),
		Search:   query(r, "search"),
	})
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "buyers", result)
}
