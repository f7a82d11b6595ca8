package analytics

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/auth"
	"github.com/frahmantamala/lead-management/internal/transport"
	"github.com/gorilla/websocket"
)

type ServiceAPI interface {
	ScopeFor(p *auth.Principal) Scope
	Summary(ctx context.Context, scope Scope) (*Aggregates, error)
	StatusCounts(ctx context.Context, scope Scope) (map[string]int64, error)
	SourceCounts(ctx context.Context, scope Scope) ([]SourceCount, error)
	OwnerCounts(ctx context.Context, scope Scope) ([]OwnerCount, error)
}

// Authenticator resolves the observer from the upgrade request.
type Authenticator interface {
	AuthenticateRequest(r *http.Request, allowQueryToken bool) (*auth.Principal, error)
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

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (Scope, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return Scope{}, false
	}
	return h.Service.ScopeFor(principal), true
}

// Summary handles GET /dashboard/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	agg, err := h.Service.Summary(r.Context(), scope)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, agg)
}

// ByStatus handles GET /dashboard/status
func (h *Handler) ByStatus(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	counts, err := h.Service.StatusCounts(r.Context(), scope)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": counts})
}

// BySource handles GET /dashboard/source
func (h *Handler) BySource(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	counts, err := h.Service.SourceCounts(r.Context(), scope)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": counts})
}

// ByOwner handles GET /dashboard/owner
func (h *Handler) ByOwner(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	counts, err := h.Service.OwnerCounts(r.Context(), scope)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": counts})
}

type WebSocketHandler struct {
	*transport.BaseHandler
	hub      *Hub
	notifier *Notifier
	auth     Authenticator
	upgrader websocket.Upgrader
}

// NewWebSocketHandler accepts upgrades from the given origins. "*" allows any
// origin; an empty list only allows requests without a foreign Origin header.
func NewWebSocketHandler(baseHandler *transport.BaseHandler, hub *Hub, notifier *Notifier, authenticator Authenticator, allowedOrigins []string) *WebSocketHandler {
	h := &WebSocketHandler{
		BaseHandler: baseHandler,
		hub:         hub,
		notifier:    notifier,
		auth:        authenticator,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		if len(allowed) == 0 {
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		}
		return false
	}
}

// ServeWS handles GET /ws
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	principal, err := h.auth.AuthenticateRequest(r, true)
	if err != nil {
		h.Logger.WarnContext(r.Context(), "websocket: rejected connection", "error", err)
		h.WriteAppError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.WarnContext(r.Context(), "websocket upgrade failed", "user_id", principal.ID, "error", err)
		return
	}

	client := NewClient(h.hub, conn, principal.ID)
	h.hub.Register(client)

	// the first message a new observer sees is a fresh snapshot
	if msg, err := h.notifier.SnapshotMessage(r.Context()); err != nil {
		h.Logger.ErrorContext(r.Context(), "websocket: initial snapshot failed", "user_id", principal.ID, "error", err)
	} else {
		client.Send(msg)
	}

	go client.writePump()
	client.readPump()
}
