package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/stockpilot/stockpilot-go/internal/model"
)

// ProductService is the owner-scoped catalog used by ProductHandler.
type ProductService interface {
	Create(ctx context.Context, userID int64, req model.CreateProductRequest) (*model.Product, error)
	Get(ctx context.Context, userID, id int64) (*model.Product, error)
	List(ctx context.Context, userID int64, f model.ProductFilter) ([]model.Product, error)
	Update(ctx context.Context, userID, id int64, patch model.ProductPatch) (*model.Product, error)
	ToggleInactive(ctx context.Context, userID, id int64) (*model.Product, error)
	Delete(ctx context.Context, userID, id int64) error
}

// listQuery is the query string accepted by GET /api/v1/products.
type listQuery struct {
	IncludeInactive bool   `schema:"include_inactive"`
	Platform        string `schema:"platform"`
	Search          string `schema:"q"`
}

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// ProductHandler handles HTTP requests for the caller's catalog.
type ProductHandler struct {
	service ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(svc ProductService) *ProductHandler {
	return &ProductHandler{service: svc}
}

// HandleList handles GET /api/v1/products requests.
func (h *ProductHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var q listQuery
	if err := queryDecoder.Decode(&q, r.URL.Query()); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid query parameters"))
		return
	}

	products, err := h.service.List(r.Context(), userID, model.ProductFilter{
		IncludeInactive: q.IncludeInactive,
		Platform:        q.Platform,
		Search:          q.Search,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// HandleCreate handles POST /api/v1/products requests.
func (h *ProductHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// HandleGet handles GET /api/v1/products/{id} requests.
func (h *ProductHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// HandleUpdate handles PATCH /api/v1/products/{id} requests.
func (h *ProductHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var patch model.ProductPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	p, err := h.service.Update(r.Context(), userID, id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// HandleToggleInactive handles PUT /api/v1/products/{id}/inactive requests.
func (h *ProductHandler) HandleToggleInactive(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.service.ToggleInactive(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// HandleDelete handles DELETE /api/v1/products/{id} requests.
func (h *ProductHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
