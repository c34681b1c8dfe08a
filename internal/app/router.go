package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gastropos/gastropos/internal/analytics"
	"github.com/gastropos/gastropos/internal/audit"
	"github.com/gastropos/gastropos/internal/auth"
	"github.com/gastropos/gastropos/internal/inventory"
	"github.com/gastropos/gastropos/internal/invoices"
	"github.com/gastropos/gastropos/internal/menu"
	"github.com/gastropos/gastropos/internal/observability"
	"github.com/gastropos/gastropos/internal/orders"
	"github.com/gastropos/gastropos/internal/rbac"
	"github.com/gastropos/gastropos/internal/users"
	"github.com/gastropos/gastropos/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthHandler        *auth.Handler
	PermissionsHandler *rbac.PermissionsHandler
	MenuHandler        *menu.Handler
	InventoryHandler   *inventory.Handler
	OrdersHandler      *orders.Handler
	InvoicesHandler    *invoices.Handler
	UsersHandler       *users.Handler
	AnalyticsHandler   *analytics.Handler
	AuditHandler       *audit.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with gastropos defaults.
func NewRouter(params RouterParams, mwCfg MiddlewareConfig) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(mwCfg) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.PermissionsHandler != nil {
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
	}
	if params.MenuHandler != nil {
		r.Route("/menu", params.MenuHandler.MountRoutes)
	}
	if params.InventoryHandler != nil {
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
	}
	if params.OrdersHandler != nil {
		r.Route("/orders", params.OrdersHandler.MountRoutes)
	}
	if params.InvoicesHandler != nil {
		r.Route("/invoices", params.InvoicesHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.AnalyticsHandler != nil {
		r.Route("/analytics", params.AnalyticsHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
