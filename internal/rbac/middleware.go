package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gastropos/gastropos/internal/platform/httpx"
	"github.com/gastropos/gastropos/internal/shared"
)

// Authorizer answers server-side permission checks. *Service satisfies it;
// tests supply fakes.
type Authorizer interface {
	RoleOf(ctx context.Context, userID int64) (Role, error)
	Allowed(ctx context.Context, userID int64, resource Resource, action Action) (bool, error)
}

// AuthMetrics counts authorization check outcomes. *observability.Metrics
// satisfies it.
type AuthMetrics interface {
	ObserveAuthCheck(outcome string)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service Authorizer
	Logger  *slog.Logger
	Metrics AuthMetrics
}

func (m Middleware) observe(outcome string) {
	if m.Metrics != nil {
		m.Metrics.ObserveAuthCheck(outcome)
	}
}

// RequireResource ensures the current user may perform action on resource.
func (m Middleware) RequireResource(resource Resource, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := m.currentUserID(r)
			if !ok {
				m.observe("anonymous")
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
				return
			}
			allowed, err := m.Service.Allowed(r.Context(), userID, resource, action)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac require resource", slog.Any("error", err))
				}
				m.observe("error")
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !allowed {
				m.observe("denied")
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "access denied: "+string(action)+" "+string(resource))
				return
			}
			m.observe("allowed")
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperAdmin restricts a route to the system administrator role.
func (m Middleware) RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := m.currentUserID(r)
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
			return
		}
		role, err := m.Service.RoleOf(r.Context(), userID)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("rbac resolve role", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		if role != RoleSystemAdmin {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "super admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}
