package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"finflow/internal/product/models"
	"finflow/internal/product/service"
	id "finflow/pkg/domain"
	"finflow/pkg/platform/httputil"
)

// Handler wires product catalog endpoints to the service.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts product endpoints on the router. The per-institution
// listing hangs off the institution resource.
func (h *Handler) Register(r chi.Router) {
	r.Post("/products", h.HandleCreate)
	r.Get("/products", h.HandleList)
	r.Get("/products/{productID}", h.HandleGet)
	r.Patch("/products/{productID}", h.HandleUpdate)
	r.Delete("/products/{productID}", h.HandleDelete)
	r.Get("/institutions/{institutionID}/products", h.HandleListByInstitution)
}

type createRequest struct {
	InstitutionID string  `json:"institution_id"`
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	RateMin       float64 `json:"rate_min"`
	RateMax       float64 `json:"rate_max"`
	Active        *bool   `json:"is_active"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[createRequest](w, r, h.logger)
	if !ok {
		return
	}
	instID, err := id.ParseInstitutionID(req.InstitutionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// New products accept applications unless explicitly created inactive.
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	product, err := h.service.CreateProduct(ctx, service.CreateProductRequest{
		InstitutionID: instID,
		Name:          req.Name,
		Type:          req.Type,
		RateMin:       req.RateMin,
		RateMax:       req.RateMax,
		Active:        active,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "product create failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, product)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	productID, err := id.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	product, err := h.service.GetProduct(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) HandleListByInstitution(w http.ResponseWriter, r *http.Request) {
	instID, err := id.ParseInstitutionID(chi.URLParam(r, "institutionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	products, err := h.service.ListProductsByInstitution(r.Context(), instID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	productID, err := id.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[models.UpdateRequest](w, r, h.logger)
	if !ok {
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), productID, &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	productID, err := id.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteProduct(r.Context(), productID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
