package menu

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

// Handler wires HTTP endpoints for menu management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs menu handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers menu routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.With(h.rbac.RequireResource(rbac.ResourceCategory, rbac.ActionRead)).Get("/", h.listCategories)
		r.With(h.rbac.RequireResource(rbac.ResourceCategory, rbac.ActionCreate)).Post("/", h.createCategory)
		r.With(h.rbac.RequireResource(rbac.ResourceCategory, rbac.ActionUpdate)).Put("/{id}", h.updateCategory)
		r.With(h.rbac.RequireResource(rbac.ResourceCategory, rbac.ActionDelete)).Delete("/{id}", h.deleteCategory)
	})
	r.Route("/items", func(r chi.Router) {
		r.With(h.rbac.RequireResource(rbac.ResourceMenu, rbac.ActionRead)).Get("/", h.listItems)
		r.With(h.rbac.RequireResource(rbac.ResourceMenu, rbac.ActionRead)).Get("/{id}", h.getItem)
		r.With(h.rbac.RequireResource(rbac.ResourceMenu, rbac.ActionCreate)).Post("/", h.createItem)
		r.With(h.rbac.RequireResource(rbac.ResourceMenu, rbac.ActionUpdate)).Put("/{id}", h.updateItem)
		r.With(h.rbac.RequireResource(rbac.ResourceMenu, rbac.ActionDelete)).Delete("/{id}", h.deleteItem)
		r.With(h.rbac.RequireResource(rbac.ResourceModifier, rbac.ActionRead)).Get("/{id}/modifiers", h.listModifiers)
		r.With(h.rbac.RequireResource(rbac.ResourceModifier, rbac.ActionCreate)).Post("/{id}/modifiers", h.createModifier)
	})
	r.With(h.rbac.RequireResource(rbac.ResourceModifier, rbac.ActionDelete)).Delete("/modifiers/{id}", h.deleteModifier)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("list categories", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if cats == nil {
		cats = []Category{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var in CategoryInput
	if !h.decodeValid(w, r, &in) {
		return
	}
	cat, err := h.service.CreateCategory(r.Context(), actorID(r), in)
	if err != nil {
		h.respondError(w, "create category", err)
		return
	}
	httpx.Created(w, map[string]any{"category": cat})
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in CategoryInput
	if !h.decodeValid(w, r, &in) {
		return
	}
	cat, err := h.service.UpdateCategory(r.Context(), actorID(r), id, in)
	if err != nil {
		h.respondError(w, "update category", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"category": cat})
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(r.Context(), actorID(r), id); err != nil {
		if errors.Is(err, ErrCategoryInUse) {
			httpx.Problem(w, http.StatusConflict, "Conflict", "category still has items")
			return
		}
		h.respondError(w, "delete category", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r, 100)
	categoryID, _ := strconv.ParseInt(r.URL.Query().Get("category_id"), 10, 64)

	items, pagination, err := h.service.ListItems(r.Context(), categoryID, page, perPage)
	if err != nil {
		h.logger.Error("list items", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if items == nil {
		items = []Item{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": pagination})
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		h.respondError(w, "get item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item": item})
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var in ItemInput
	if !h.decodeValid(w, r, &in) {
		return
	}
	item, err := h.service.CreateItem(r.Context(), actorID(r), in)
	if err != nil {
		h.respondError(w, "create item", err)
		return
	}
	httpx.Created(w, map[string]any{"item": item})
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in ItemInput
	if !h.decodeValid(w, r, &in) {
		return
	}
	item, err := h.service.UpdateItem(r.Context(), actorID(r), id, in)
	if err != nil {
		h.respondError(w, "update item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item": item})
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteItem(r.Context(), actorID(r), id); err != nil {
		h.respondError(w, "delete item", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listModifiers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	mods, err := h.service.ListModifiers(r.Context(), id)
	if err != nil {
		h.respondError(w, "list modifiers", err)
		return
	}
	if mods == nil {
		mods = []Modifier{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"modifiers": mods})
}

func (h *Handler) createModifier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in ModifierInput
	if !h.decodeValid(w, r, &in) {
		return
	}
	mod, err := h.service.CreateModifier(r.Context(), actorID(r), id, in)
	if err != nil {
		h.respondError(w, "create modifier", err)
		return
	}
	httpx.Created(w, map[string]any{"modifier": mod})
}

func (h *Handler) deleteModifier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteModifier(r.Context(), actorID(r), id); err != nil {
		h.respondError(w, "delete modifier", err)
		return
	}
	httpx.NoContent(w)
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
