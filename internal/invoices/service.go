package invoices

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gastropos/gastropos/internal/orders"
	"github.com/gastropos/gastropos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Insert(ctx context.Context, inv Invoice) (Invoice, error)
	Get(ctx context.Context, id int64) (Invoice, error)
	List(ctx context.Context, limit, offset int) ([]Invoice, int, error)
}

// OrdersPort loads orders for invoicing.
type OrdersPort interface {
	Get(ctx context.Context, id int64) (orders.Order, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates invoice issuance.
type Service struct {
	repo      RepositoryPort
	orders    OrdersPort
	formatter *Formatter
	audit     AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, ordersPort OrdersPort, formatter *Formatter, audit AuditPort) *Service {
	return &Service{repo: repo, orders: ordersPort, formatter: formatter, audit: audit}
}

// Issue creates an invoice over a fulfilled order.
func (s *Service) Issue(ctx context.Context, actorID int64, in IssueInput) (Invoice, error) {
	order, err := s.orders.Get(ctx, in.OrderID)
	if err != nil {
		return Invoice{}, err
	}
	if order.Status != orders.StatusFulfilled {
		return Invoice{}, fmt.Errorf("%w: order %s is %s", ErrOrderNotFulfilled, order.Code, order.Status)
	}

	subtotal := order.TotalCents
	tax := subtotal * int64(in.TaxRateBPs) / 10000
	inv := Invoice{
		Number:        newInvoiceNumber(),
		OrderID:       order.ID,
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TotalCents:    subtotal + tax,
		Currency:      s.formatter.Code(),
		IssuedBy:      actorID,
	}

	stored, err := s.repo.Insert(ctx, inv)
	if err != nil {
		return Invoice{}, err
	}
	s.decorate(&stored)

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "invoices.issue",
			Entity:   "invoice",
			EntityID: strconv.FormatInt(stored.ID, 10),
		})
	}
	return stored, nil
}

// Get loads an invoice with display totals.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	s.decorate(&inv)
	return inv, nil
}

// List returns invoices with display totals.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Invoice, shared.Pagination, error) {
	list, total, err := s.repo.List(ctx, perPage, shared.Offset(page, perPage))
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range list {
		s.decorate(&list[i])
	}
	return list, shared.NewPagination(page, perPage, total), nil
}

func (s *Service) decorate(inv *Invoice) {
	if s.formatter == nil {
		return
	}
	inv.SubtotalDisplay = s.formatter.Format(inv.SubtotalCents)
	inv.TaxDisplay = s.formatter.Format(inv.TaxCents)
	inv.TotalDisplay = s.formatter.Format(inv.TotalCents)
}

func newInvoiceNumber() string {
	return "INV-" + time.Now().UTC().Format("20060102") + "-" + strings.ToUpper(uuid.NewString()[:8])
}
