package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gastropos/gastropos/internal/platform/httpx"
	"github.com/gastropos/gastropos/internal/rbac"
	"github.com/gastropos/gastropos/internal/shared"
)

// Handler wires HTTP endpoints for stock tracking.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireResource(rbac.ResourceInventory, rbac.ActionRead)).Get("/", h.list)
	r.With(h.rbac.RequireResource(rbac.ResourceInventory, rbac.ActionRead)).Get("/low", h.listLow)
	r.With(h.rbac.RequireResource(rbac.ResourceInventory, rbac.ActionCreate)).Post("/", h.create)
	r.With(h.rbac.RequireResource(rbac.ResourceInventory, rbac.ActionRead)).Get("/{id}", h.get)
	r.With(h.rbac.RequireResource(rbac.ResourceInventory, rbac.ActionUpdate)).Put("/{id}", h.update)
	r.With(h.rbac.RequireResource(rbac.ResourceInventory, rbac.ActionUpdate)).Post("/{id}/movements", h.adjust)
	r.With(h.rbac.RequireResource(rbac.ResourceInventory, rbac.ActionRead)).Get("/{id}/movements", h.movements)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list stock items", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if items == nil {
		items = []StockItem{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) listLow(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListLow(r.Context())
	if err != nil {
		h.logger.Error("list low stock", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if items == nil {
		items = []StockItem{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get stock item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item": item})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in StockItemInput
	if !h.decodeValid(w, r, &in) {
		return
	}
	item, err := h.service.Create(r.Context(), actorID(r), in)
	if err != nil {
		h.respondError(w, "create stock item", err)
		return
	}
	httpx.Created(w, map[string]any{"item": item})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in StockItemInput
	if !h.decodeValid(w, r, &in) {
		return
	}
	item, err := h.service.Update(r.Context(), actorID(r), id, in)
	if err != nil {
		h.respondError(w, "update stock item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item": item})
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in MovementInput
	if !h.decodeValid(w, r, &in) {
		return
	}
	move, err := h.service.Adjust(r.Context(), actorID(r), id, in)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			httpx.Problem(w, http.StatusConflict, "Conflict", "not enough stock on hand")
			return
		}
		h.respondError(w, "record movement", err)
		return
	}
	httpx.Created(w, map[string]any{"movement": move})
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	moves, err := h.service.Movements(r.Context(), id, limit)
	if err != nil {
		h.respondError(w, "list movements", err)
		return
	}
	if moves == nil {
		moves = []Movement{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": moves})
}

func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid id")
		return 0, false
	}
	return id, true
}

func actorID(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	id, _ := strconv.ParseInt(sess.User(), 10, 64)
	return id
}
