package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hongminglow/farmconnect/internal/http/respond"
	"github.com/hongminglow/farmconnect/internal/middleware"
	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/models/dto"
	"github.com/hongminglow/farmconnect/internal/services"
)

// ProductsHandler serves the product catalogue and farmers' listings.
type ProductsHandler struct {
	products *services.Products
}

func NewProductsHandler(products *services.Products) *ProductsHandler {
	return &ProductsHandler{products: products}
}

func (h *ProductsHandler) Register(r *mux.Router, gate *middleware.Gate) {
	r.HandleFunc("/products", gate.Protect(h.list)).Methods(http.MethodGet)
	r.HandleFunc("/products", gate.Protect(h.create)).Methods(http.MethodPost)
	r.HandleFunc("/products/categories", gate.Protect(h.categories)).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", gate.Protect(h.get)).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", gate.Protect(h.update)).Methods(http.MethodPatch)
	r.HandleFunc("/products/{id}", gate.Protect(h.remove)).Methods(http.MethodDelete)
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	filter := services.ProductFilter{
		Category: query(r, "category"),
		FarmerID: query(r, "farmer_id"),
		Location: query(r, "location"),
	}
	if query(r, "mine") == "true" {
		filter.FarmerID = currentUser(r).ID
	}
	result, err := h.products.List(r.Context(), page, size, filter)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "products", result)
}

func (h *ProductsHandler) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.products.Categories(r.Context())
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "categories", cats)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "product", product)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	product, err := h.products.Create(r.Context(), currentUser(r), models.Product{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		ImageURL:    req.ImageURL,
		Location:    req.Location,
	})
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "Product listed", product)
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	var patch models.ProductUpdate
	if !decodeJSON(w, r, &patch) {
		return
	}
	product, err := h.products.Update(r.Context(), currentUser(r), mux.Vars(r)["id"], patch)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Product updated", product)
}

func (h *ProductsHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), currentUser(r), mux.Vars(r)["id"]); err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Product deleted", nil)
}
