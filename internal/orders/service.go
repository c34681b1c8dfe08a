package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gastropos/gastropos/internal/menu"
	"github.com/gastropos/gastropos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Insert(ctx context.Context, order Order) (Order, error)
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) (Order, error)
}

// MenuPort resolves menu items for order lines.
type MenuPort interface {
	GetItem(ctx context.Context, id int64) (menu.Item, error)
}

// CachePort invalidates the dashboard cache when order data changes.
type CachePort interface {
	Bump(ctx context.Context) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates order operations.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	menu   MenuPort
	cache  CachePort
	audit  AuditPort
}

// NewService builds Service.
func NewService(logger *slog.Logger, repo RepositoryPort, menuPort MenuPort, cache CachePort, audit AuditPort) *Service {
	return &Service{logger: logger, repo: repo, menu: menuPort, cache: cache, audit: audit}
}

// Create opens a new order, snapshotting item names and prices.
func (s *Service) Create(ctx context.Context, actorID int64, in CreateInput) (Order, error) {
	order := Order{
		Code:      newOrderCode(),
		Status:    StatusOpen,
		TableNo:   strings.TrimSpace(in.TableNo),
		Note:      strings.TrimSpace(in.Note),
		CreatedBy: actorID,
	}

	for _, lineIn := range in.Lines {
		item, err := s.menu.GetItem(ctx, lineIn.ItemID)
		if err != nil {
			return Order{}, fmt.Errorf("%w: id %d", ErrUnknownItem, lineIn.ItemID)
		}
		if !item.Available {
			return Order{}, fmt.Errorf("%w: %s", ErrItemUnavailable, item.Name)
		}
		order.Lines = append(order.Lines, Line{
			ItemID:         item.ID,
			Name:           item.Name,
			Qty:            lineIn.Qty,
			UnitPriceCents: item.PriceCents,
		})
		order.TotalCents += int64(lineIn.Qty) * item.PriceCents
	}

	stored, err := s.repo.Insert(ctx, order)
	if err != nil {
		return Order{}, err
	}
	s.afterWrite(ctx, actorID, "orders.create", stored.ID)
	return stored, nil
}

// Get loads one order with lines.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter, page, perPage int) ([]Order, shared.Pagination, error) {
	list, total, err := s.repo.List(ctx, filter, perPage, shared.Offset(page, perPage))
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page, perPage, total), nil
}

// Submit moves an open order to the kitchen.
func (s *Service) Submit(ctx context.Context, actorID, id int64) (Order, error) {
	return s.transition(ctx, actorID, id, StatusOpen, StatusSubmitted, "orders.submit")
}

// Fulfill completes a submitted order.
func (s *Service) Fulfill(ctx context.Context, actorID, id int64) (Order, error) {
	return s.transition(ctx, actorID, id, StatusSubmitted, StatusFulfilled, "orders.fulfill")
}

// Cancel aborts an order. Open and submitted orders may be cancelled.
func (s *Service) Cancel(ctx context.Context, actorID, id int64) (Order, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(current.Status, StatusCancelled) {
		return Order{}, TransitionError(current.Status, StatusCancelled)
	}
	return s.transition(ctx, actorID, id, current.Status, StatusCancelled, "orders.cancel")
}

func (s *Service) transition(ctx context.Context, actorID, id int64, from, to Status, action string) (Order, error) {
	order, err := s.repo.UpdateStatus(ctx, id, from, to)
	if err != nil {
		return Order{}, err
	}
	s.afterWrite(ctx, actorID, action, order.ID)
	return order, nil
}

func (s *Service) afterWrite(ctx context.Context, actorID int64, action string, orderID int64) {
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("bump analytics cache", slog.Any("error", err))
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   action,
			Entity:   "order",
			EntityID: strconv.FormatInt(orderID, 10),
		})
	}
}

func newOrderCode() string {
	return "ORD-" + time.Now().UTC().Format("20060102") + "-" + strings.ToUpper(uuid.NewString()[:8])
}
