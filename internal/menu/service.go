package menu

import (
	"context"
	"strconv"
	"strings"

	"github.com/gastropos/gastropos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (Category, error)
	UpdateCategory(ctx context.Context, id int64, in CategoryInput) (Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ListItems(ctx context.Context, categoryID int64, limit, offset int) ([]Item, int, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	CreateItem(ctx context.Context, in ItemInput) (Item, error)
	UpdateItem(ctx context.Context, id int64, in ItemInput) (Item, error)
	DeleteItem(ctx context.Context, id int64) error
	ListModifiers(ctx context.Context, itemID int64) ([]Modifier, error)
	CreateModifier(ctx context.Context, itemID int64, in ModifierInput) (Modifier, error)
	DeleteModifier(ctx context.Context, id int64) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates menu operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, actorID int64, in CategoryInput) (Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	cat, err := s.repo.CreateCategory(ctx, in)
	if err != nil {
		return Category{}, err
	}
	s.recordAudit(ctx, actorID, "menu.category.create", "menu_category", cat.ID)
	return cat, nil
}

func (s *Service) UpdateCategory(ctx context.Context, actorID, id int64, in CategoryInput) (Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	cat, err := s.repo.UpdateCategory(ctx, id, in)
	if err != nil {
		return Category{}, err
	}
	s.recordAudit(ctx, actorID, "menu.category.update", "menu_category", id)
	return cat, nil
}

func (s *Service) DeleteCategory(ctx context.Context, actorID, id int64) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "menu.category.delete", "menu_category", id)
	return nil
}

func (s *Service) ListItems(ctx context.Context, categoryID int64, page, perPage int) ([]Item, shared.Pagination, error) {
	items, total, err := s.repo.ListItems(ctx, categoryID, perPage, shared.Offset(page, perPage))
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

func (s *Service) GetItem(ctx context.Context, id int64) (Item, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *Service) CreateItem(ctx context.Context, actorID int64, in ItemInput) (Item, error) {
	in.Name = strings.TrimSpace(in.Name)
	item, err := s.repo.CreateItem(ctx, in)
	if err != nil {
		return Item{}, err
	}
	s.recordAudit(ctx, actorID, "menu.item.create", "menu_item", item.ID)
	return item, nil
}

func (s *Service) UpdateItem(ctx context.Context, actorID, id int64, in ItemInput) (Item, error) {
	in.Name = strings.TrimSpace(in.Name)
	item, err := s.repo.UpdateItem(ctx, id, in)
	if err != nil {
		return Item{}, err
	}
	s.recordAudit(ctx, actorID, "menu.item.update", "menu_item", id)
	return item, nil
}

func (s *Service) DeleteItem(ctx context.Context, actorID, id int64) error {
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "menu.item.delete", "menu_item", id)
	return nil
}

func (s *Service) ListModifiers(ctx context.Context, itemID int64) ([]Modifier, error) {
	return s.repo.ListModifiers(ctx, itemID)
}

func (s *Service) CreateModifier(ctx context.Context, actorID, itemID int64, in ModifierInput) (Modifier, error) {
	in.Name = strings.TrimSpace(in.Name)
	mod, err := s.repo.CreateModifier(ctx, itemID, in)
	if err != nil {
		return Modifier{}, err
	}
	s.recordAudit(ctx, actorID, "menu.modifier.create", "menu_modifier", mod.ID)
	return mod, nil
}

func (s *Service) DeleteModifier(ctx context.Context, actorID, id int64) error {
	if err := s.repo.DeleteModifier(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "menu.modifier.delete", "menu_modifier", id)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entity string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
	})
}
