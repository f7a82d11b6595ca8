package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/transport"
)

type RBACAuthorization struct {
	*transport.BaseHandler
	logger *slog.Logger
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		logger:      logger,
	}
}

// RequireRoles admits the request only when the principal's role is in roles.
func (ra *RBACAuthorization) RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				ra.logger.WarnContext(r.Context(), "authorization check failed: principal not found in context")
				ra.WriteAppError(w, internal.ErrMissingToken)
				return
			}

			if !HasAnyRole(principal.Role, roles) {
				ra.logger.WarnContext(r.Context(), "access denied: insufficient role",
					"user_id", principal.ID,
					"role", principal.Role,
					"required_roles", roles)
				ra.WriteAppError(w, ForbiddenRole(principal.Role, roles))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.RequireRoles(RoleAdmin)
}

func (ra *RBACAuthorization) RequireManager() func(http.Handler) http.Handler {
	return ra.RequireRoles(RoleAdmin, RoleManager)
}

// ForbiddenRole reports the offending role and the accepted set.
func ForbiddenRole(role Role, required []Role) *internal.AppError {
	return internal.NewForbiddenError("Insufficient role for this operation", internal.ErrCodeInsufficientRole).
		WithDetails(map[string]interface{}{
			"role":           role,
			"required_roles": RoleNames(required),
		})
}
