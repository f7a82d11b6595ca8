package activity

import (
	"context"
	"net/http"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/auth"
	"github.com/frahmantamala/lead-management/internal/transport"
)

type ServiceAPI interface {
	ListActivities(ctx context.Context, p *auth.Principal, leadID int64) ([]*Activity, error)
	CreateActivity(ctx context.Context, p *auth.Principal, leadID int64, dto CreateActivityDTO) (*Activity, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// ListActivities handles GET /leads/{id}/activities
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}
	leadID, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	items, err := h.Service.ListActivities(r.Context(), principal, leadID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	if items == nil {
		items = []*Activity{}
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": items})
}

// CreateActivity handles POST /leads/{id}/activities
func (h *Handler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}
	leadID, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	var dto CreateActivityDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	a, err := h.Service.CreateActivity(r.Context(), principal, leadID, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, a)
}
