package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"finflow/internal/application/models"
	"finflow/internal/application/service"
	id "finflow/pkg/domain"
	"finflow/pkg/platform/httputil"
)

// Handler wires application endpoints to the workflow service.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts application endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/applications", h.HandleCreate)
	r.Get("/applications/{applicationID}", h.HandleGet)
	r.Patch("/applications/{applicationID}/status", h.HandleDecide)
	r.Get("/users/{userID}/applications", h.HandleListByUser)
	r.Get("/products/{productID}/applications", h.HandleListByProduct)
	r.Get("/institutions/{institutionID}/applications", h.HandleListByInstitution)
}

type createRequest struct {
	ApplicantUserID string               `json:"applicant_user_id"`
	ProductID       string               `json:"product_id"`
	Data            models.Data          `json:"data"`
	Documents       []models.DocumentRef `json:"documents"`
}

type applicationResponse struct {
	*models.Application
	Warning string `json:"warning,omitempty"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[createRequest](w, r, h.logger)
	if !ok {
		return
	}
	applicant, err := id.ParseUserID(req.ApplicantUserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	productID, err := id.ParseProductID(req.ProductID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	app, warning, err := h.service.CreateApplication(ctx, service.CreateApplicationRequest{
		ApplicantUserID: applicant,
		ProductID:       productID,
		Data:            req.Data,
		Documents:       req.Documents,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "application create failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	resp := applicationResponse{Application: app}
	if warning != nil {
		resp.Warning = warning.Message()
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

type decisionRequest struct {
	Status          string   `json:"status"`
	RejectionReason string   `json:"rejection_reason"`
	ApprovalAmount  *float64 `json:"approval_amount"`
}

type decisionResponse struct {
	*service.PopulatedApplication
	Warning string `json:"warning,omitempty"`
}

func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[decisionRequest](w, r, h.logger)
	if !ok {
		return
	}
	status, err := id.ParseDecision(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	populated, warning, err := h.service.UpdateApplicationStatus(ctx, appID, service.DecisionRequest{
		Status:          status,
		RejectionReason: req.RejectionReason,
		ApprovalAmount:  req.ApprovalAmount,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "application decision failed",
			"application_id", appID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	resp := decisionResponse{PopulatedApplication: populated}
	if warning != nil {
		resp.Warning = warning.Message()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	app, err := h.service.GetApplication(r.Context(), appID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	apps, err := h.service.ListApplicationsByUser(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

func (h *Handler) HandleListByProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := id.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	apps, err := h.service.ListApplicationsByProduct(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

func (h *Handler) HandleListByInstitution(w http.ResponseWriter, r *http.Request) {
	instID, err := id.ParseInstitutionID(chi.URLParam(r, "institutionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	apps, err := h.service.ListApplicationsByInstitution(r.Context(), instID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"applications": apps})
}
