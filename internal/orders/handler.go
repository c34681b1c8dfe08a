package orders

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gastropos/gastropos/internal/platform/httpx"
	"github.com/gastropos/gastropos/internal/rbac"
	"github.com/gastropos/gastropos/internal/shared"
)

// Handler wires HTTP endpoints for order management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs orders handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireResource(rbac.ResourceOrder, rbac.ActionRead)).Get("/", h.list)
	r.With(h.rbac.RequireResource(rbac.ResourceOrder, rbac.ActionRead)).Get("/{id}", h.get)
	r.With(h.rbac.RequireResource(rbac.ResourceOrder, rbac.ActionCreate)).Post("/", h.create)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireResource(rbac.ResourceOrder, rbac.ActionUpdate))
		r.Post("/{id}/submit", h.submit)
		r.Post("/{id}/fulfill", h.fulfill)
		r.Post("/{id}/cancel", h.cancel)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r, 100)
	filter := ListFilter{Status: Status(r.URL.Query().Get("status"))}
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse("2006-01-02", since)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "since must be YYYY-MM-DD")
			return
		}
		filter.Since = t
	}

	list, pagination, err := h.service.List(r.Context(), filter, page, perPage)
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if list == nil {
		list = []Order{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": list, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	order, err := h.service.Create(r.Context(), h.actorID(r), in)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownItem):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, ErrItemUnavailable):
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		default:
			h.respondError(w, "create order", err)
		}
		return
	}
	httpx.Created(w, map[string]any{"order": order})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.Submit)
}

func (h *Handler) fulfill(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.Fulfill)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.Cancel)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64, int64) (Order, error)) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	order, err := fn(r.Context(), h.actorID(r), id)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
			return
		}
		h.respondError(w, "change order status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) actorID(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	id, _ := strconv.ParseInt(sess.User(), 10, 64)
	return id
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
