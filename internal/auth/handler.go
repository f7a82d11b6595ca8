package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/transport"
	"github.com/frahmantamala/lead-management/pkg/logger"
)

// LoginObserver counts login outcomes.
type LoginObserver interface {
	CountLogin(success bool)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Logins  LoginObserver
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	resp, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	resp, err := h.Service.Authenticate(r.Context(), dto)
	if h.Logins != nil {
		h.Logins.CountLogin(err == nil)
	}
	if err != nil {
		h.Logger.WarnContext(r.Context(), "authentication failed", "error", err)
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.ExtractTokenFromHeader(r)
	if token == "" {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	if err := h.Service.Logout(r.Context(), token); err != nil {
		h.WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	view, err := h.Service.Me(r.Context(), principal.ID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, view)
}

// AuthenticateRequest reads the bearer token from the Authorization header, or
// from the token query parameter when allowQueryToken is set.
func (h *Handler) AuthenticateRequest(r *http.Request, allowQueryToken bool) (*Principal, error) {
	token := h.ExtractTokenFromHeader(r)
	if token == "" && allowQueryToken {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return nil, internal.ErrMissingToken
	}
	return h.Service.Resolve(r.Context(), token)
}

func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := h.AuthenticateRequest(r, false)
		if err != nil {
			h.Logger.WarnContext(r.Context(), "auth middleware: rejected request", "path", r.URL.Path, "error", err)
			h.WriteAppError(w, err)
			return
		}

		ctx := ContextWithPrincipal(r.Context(), principal)
		ctx = logger.With(ctx, "user_id", principal.ID, "role", principal.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
