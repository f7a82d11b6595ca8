package lead

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/auth"
	"github.com/frahmantamala/lead-management/internal/core/common/pagination"
	"github.com/frahmantamala/lead-management/internal/transport"
)

type ServiceAPI interface {
	CreateLead(ctx context.Context, p *auth.Principal, dto CreateLeadDTO) (*Lead, error)
	GetLead(ctx context.Context, p *auth.Principal, id int64) (*Detail, error)
	ListLeads(ctx context.Context, p *auth.Principal, filter ListFilter) ([]*Lead, int64, error)
	UpdateLead(ctx context.Context, p *auth.Principal, id int64, dto UpdateLeadDTO) (*Lead, error)
	TransferLead(ctx context.Context, p *auth.Principal, id int64, dto TransferLeadDTO) (*Lead, error)
	DeleteLead(ctx context.Context, p *auth.Principal, id int64) error
	GetLeadHistory(ctx context.Context, p *auth.Principal, id int64) ([]*HistoryEntry, error)
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

// principalAndID pulls the two inputs every /leads/{id} route needs.
func (h *Handler) principalAndID(w http.ResponseWriter, r *http.Request) (*auth.Principal, int64, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return nil, 0, false
	}
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return nil, 0, false
	}
	return principal, id, true
}

// CreateLead handles POST /leads
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	var dto CreateLeadDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	l, err := h.Service.CreateLead(r.Context(), principal, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{"lead": l})
}

// ListLeads handles GET /leads
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	q := r.URL.Query()
	filter := ListFilter{
		Status: Status(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		Source: strings.TrimSpace(q.Get("source")),
		Search: strings.TrimSpace(q.Get("search")),
		Params: pagination.FromRequest(r),
	}
	if raw := q.Get("owner_id"); raw != "" {
		ownerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ownerID <= 0 {
			h.WriteAppError(w, internal.NewValidationFieldError("owner_id", "owner_id must be a positive id", internal.ErrCodeInvalidID))
			return
		}
		filter.OwnerID = ownerID
	}

	leads, total, err := h.Service.ListLeads(r.Context(), principal, filter)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, pagination.NewPage(leads, total, filter.Params))
}

// GetLead handles GET /leads/{id}
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	principal, id, ok := h.principalAndID(w, r)
	if !ok {
		return
	}

	detail, err := h.Service.GetLead(r.Context(), principal, id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, detail)
}

// UpdateLead handles PATCH /leads/{id}
func (h *Handler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	principal, id, ok := h.principalAndID(w, r)
	if !ok {
		return
	}

	var dto UpdateLeadDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	l, err := h.Service.UpdateLead(r.Context(), principal, id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"lead": l})
}

// TransferLead handles PUT /leads/{id}/transfer
func (h *Handler) TransferLead(w http.ResponseWriter, r *http.Request) {
	principal, id, ok := h.principalAndID(w, r)
	if !ok {
		return
	}

	var dto TransferLeadDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	l, err := h.Service.TransferLead(r.Context(), principal, id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"lead": l})
}

// DeleteLead handles DELETE /leads/{id}
func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	principal, id, ok := h.principalAndID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteLead(r.Context(), principal, id); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"message": "Lead deleted", "id": id})
}

// GetLeadHistory handles GET /leads/{id}/history
func (h *Handler) GetLeadHistory(w http.ResponseWriter, r *http.Request) {
	principal, id, ok := h.principalAndID(w, r)
	if !ok {
		return
	}

	history, err := h.Service.GetLeadHistory(r.Context(), principal, id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": history})
}
