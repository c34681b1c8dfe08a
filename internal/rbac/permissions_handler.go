package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gastropos/gastropos/internal/platform/httpx"
)

// PermissionsHandler serves the grant set consumed by admin clients.
type PermissionsHandler struct {
	logger  *slog.Logger
	service *Service
	rbac    Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.userGrants)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireSuperAdmin)
		r.Post("/seed", h.seedGrants)
	})
}

type grantsResponse struct {
	Role   Role    `json:"role"`
	Grants []Grant `json:"grants"`
}

func (h *PermissionsHandler) userGrants(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.rbac.currentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	role, err := h.service.RoleOf(r.Context(), userID)
	if err != nil {
		h.logger.Error("resolve role", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	resp := grantsResponse{Role: role, Grants: []Grant{}}
	if !CapabilitiesFor(role).BypassAll {
		grants, err := h.service.EffectiveGrants(r.Context(), role)
		if err != nil {
			h.logger.Error("load grants", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		if grants != nil {
			resp.Grants = grants
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *PermissionsHandler) seedGrants(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Seed(r.Context()); err != nil {
		h.logger.Error("seed grants", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.NoContent(w)
}
