package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"finflow/internal/institution/models"
	"finflow/internal/institution/service"
	id "finflow/pkg/domain"
	"finflow/pkg/platform/httputil"
)

// Handler wires institution endpoints to the workflow service.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// New constructs an institution handler with its dependencies.
func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts institution endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/institutions", h.HandleCreate)
	r.Get("/institutions", h.HandleList)
	r.Get("/institutions/{institutionID}", h.HandleGet)
	r.Patch("/institutions/{institutionID}", h.HandleUpdate)
	r.Delete("/institutions/{institutionID}", h.HandleDelete)
}

type createRequest struct {
	OwnerUserID  string `json:"owner_user_id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	ContactEmail string `json:"contact_email"`
}

type institutionResponse struct {
	*models.Institution
	Warning string `json:"warning,omitempty"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[createRequest](w, r, h.logger)
	if !ok {
		return
	}
	owner, err := id.ParseUserID(req.OwnerUserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	inst, warning, err := h.service.CreateInstitution(ctx, service.CreateInstitutionRequest{
		OwnerUserID:  owner,
		Name:         req.Name,
		Type:         req.Type,
		ContactEmail: req.ContactEmail,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "institution create failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	resp := institutionResponse{Institution: inst}
	if warning != nil {
		resp.Warning = warning.Message()
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	instID, err := id.ParseInstitutionID(chi.URLParam(r, "institutionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	inst, err := h.service.GetInstitution(r.Context(), instID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inst)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	insts, err := h.service.ListInstitutions(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"institutions": insts})
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	instID, err := id.ParseInstitutionID(chi.URLParam(r, "institutionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[models.UpdateRequest](w, r, h.logger)
	if !ok {
		return
	}
	inst, err := h.service.UpdateInstitution(r.Context(), instID, &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inst)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	instID, err := id.ParseInstitutionID(chi.URLParam(r, "institutionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteInstitution(r.Context(), instID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
