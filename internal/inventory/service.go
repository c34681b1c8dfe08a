package inventory

import (
	"context"
	"strconv"
	"strings"

	"github.com/gastropos/gastropos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	List(ctx context.Context) ([]StockItem, error)
	ListLow(ctx context.Context) ([]StockItem, error)
	Get(ctx context.Context, id int64) (StockItem, error)
	Create(ctx context.Context, in StockItemInput) (StockItem, error)
	Update(ctx context.Context, id int64, in StockItemInput) (StockItem, error)
	Record(ctx context.Context, m Movement) (Movement, error)
	Movements(ctx context.Context, itemID int64, limit int) ([]Movement, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock tracking operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) List(ctx context.Context) ([]StockItem, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListLow(ctx context.Context) ([]StockItem, error) {
	return s.repo.ListLow(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (StockItem, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, actorID int64, in StockItemInput) (StockItem, error) {
	in.Name = strings.TrimSpace(in.Name)
	item, err := s.repo.Create(ctx, in)
	if err != nil {
		return StockItem{}, err
	}
	s.recordAudit(ctx, actorID, "inventory.item.create", item.ID)
	return item, nil
}

func (s *Service) Update(ctx context.Context, actorID, id int64, in StockItemInput) (StockItem, error) {
	in.Name = strings.TrimSpace(in.Name)
	item, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return StockItem{}, err
	}
	s.recordAudit(ctx, actorID, "inventory.item.update", id)
	return item, nil
}

// Adjust records a movement against an item and returns the movement with
// its assigned ID and timestamp.
func (s *Service) Adjust(ctx context.Context, actorID, itemID int64, in MovementInput) (Movement, error) {
	move, err := s.repo.Record(ctx, Movement{
		ItemID:   itemID,
		Type:     MovementType(in.Type),
		Quantity: in.Quantity,
		Note:     strings.TrimSpace(in.Note),
		ActorID:  actorID,
	})
	if err != nil {
		return Movement{}, err
	}
	s.recordAudit(ctx, actorID, "inventory.movement."+in.Type, itemID)
	return move, nil
}

func (s *Service) Movements(ctx context.Context, itemID int64, limit int) ([]Movement, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.Movements(ctx, itemID, limit)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "stock_item",
		EntityID: strconv.FormatInt(id, 10),
	})
}
