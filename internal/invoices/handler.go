package invoices

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gastropos/gastropos/internal/platform/httpx"
	"github.com/gastropos/gastropos/internal/rbac"
	"github.com/gastropos/gastropos/internal/shared"
)

// PDFRenderer converts HTML to PDF bytes. The gotenberg client satisfies it.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler wires HTTP endpoints for invoices.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	pdf       PDFRenderer
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs invoices handler. pdf may be nil when no renderer
// is configured; the PDF endpoint then reports 503.
func NewHandler(logger *slog.Logger, service *Service, pdf PDFRenderer, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, pdf: pdf, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireResource(rbac.ResourceInvoice, rbac.ActionRead)).Get("/", h.list)
	r.With(h.rbac.RequireResource(rbac.ResourceInvoice, rbac.ActionRead)).Get("/{id}", h.get)
	r.With(h.rbac.RequireResource(rbac.ResourceInvoice, rbac.ActionRead)).Get("/{id}/pdf", h.pdfExport)
	r.With(h.rbac.RequireResource(rbac.ResourceInvoice, rbac.ActionCreate)).Post("/", h.issue)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r, 100)
	list, pagination, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if list == nil {
		list = []Invoice{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": list, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoice": inv})
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	var in IssueInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	actorID := int64(0)
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		actorID, _ = strconv.ParseInt(sess.User(), 10, 64)
	}

	inv, err := h.service.Issue(r.Context(), actorID, in)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "order not found")
		case errors.Is(err, ErrOrderNotFulfilled):
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		case errors.Is(err, ErrAlreadyInvoiced):
			httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
		default:
			h.logger.Error("issue invoice", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.Created(w, map[string]any{"invoice": inv})
}

func (h *Handler) pdfExport(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "pdf rendering not configured")
		return
	}
	inv, ok := h.load(w, r)
	if !ok {
		return
	}

	pdf, err := h.pdf.RenderHTML(r.Context(), invoiceHTML(inv))
	if err != nil {
		h.logger.Error("render invoice pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Upstream Error", "pdf rendering failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%s.pdf", inv.Number))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Invoice, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid id")
		return Invoice{}, false
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "")
			return Invoice{}, false
		}
		h.logger.Error("get invoice", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return Invoice{}, false
	}
	return inv, true
}

func invoiceHTML(inv Invoice) string {
	esc := html.EscapeString
	return "<html><head><title>" + esc(inv.Number) + "</title></head><body>" +
		"<h1>Invoice " + esc(inv.Number) + "</h1>" +
		"<p>Order " + esc(inv.OrderCode) + ", issued " + inv.IssuedAt.Format("2006-01-02 15:04") + " UTC</p>" +
		"<table>" +
		"<tr><td>Subtotal</td><td>" + esc(inv.SubtotalDisplay) + "</td></tr>" +
		"<tr><td>Tax</td><td>" + esc(inv.TaxDisplay) + "</td></tr>" +
		"<tr><td><strong>Total</strong></td><td><strong>" + esc(inv.TotalDisplay) + "</strong></td></tr>" +
		"</table></body></html>"
}
