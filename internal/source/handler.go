package source

import (
	"context"
	"net/http"

	"github.com/frahmantamala/lead-management/internal/transport"
)

type ServiceAPI interface {
	GetActiveSources(ctx context.Context) ([]SourceResponse, error)
	CreateSource(ctx context.Context, dto CreateSourceDTO) (*Source, error)
	UpdateSource(ctx context.Context, id int64, dto UpdateSourceDTO) (*Source, error)
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

func (h *Handler) GetSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.Service.GetActiveSources(r.Context())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": sources})
}

func (h *Handler) CreateSource(w http.ResponseWriter, r *http.Request) {
	var dto CreateSourceDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	src, err := h.Service.CreateSource(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, src)
}

func (h *Handler) UpdateSource(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	var dto UpdateSourceDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	src, err := h.Service.UpdateSource(r.Context(), id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, src)
}
