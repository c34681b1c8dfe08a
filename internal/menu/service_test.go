package menu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gastropos/gastropos/internal/shared"
)

type memoryRepo struct {
	categories map[int64]Category
	items      map[int64]Item
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{categories: make(map[int64]Category), items: make(map[int64]Item)}
}

func (r *memoryRepo) ListCategories(ctx context.Context) ([]Category, error) {
	var cats []Category
	for _, c := range r.categories {
		cats = append(cats, c)
	}
	return cats, nil
}

func (r *memoryRepo) CreateCategory(ctx context.Context, in CategoryInput) (Category, error) {
	r.nextID++
	c := Category{ID: r.nextID, Name: in.Name, SortOrder: in.SortOrder}
	r.categories[c.ID] = c
	return c, nil
}

func (r *memoryRepo) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (Category, error) {
	c, ok := r.categories[id]
	if !ok {
		return Category{}, shared.ErrNotFound
	}
	c.Name, c.SortOrder = in.Name, in.SortOrder
	r.categories[id] = c
	return c, nil
}

func (r *memoryRepo) DeleteCategory(ctx context.Context, id int64) error {
	if _, ok := r.categories[id]; !ok {
		return shared.ErrNotFound
	}
	for _, item := range r.items {
		if item.CategoryID == id {
			return ErrCategoryInUse
		}
	}
	delete(r.categories, id)
	return nil
}

func (r *memoryRepo) ListItems(ctx context.Context, categoryID int64, limit, offset int) ([]Item, int, error) {
	var items []Item
	for _, item := range r.items {
		if categoryID != 0 && item.CategoryID != categoryID {
			continue
		}
		items = append(items, item)
	}
	return items, len(items), nil
}

func (r *memoryRepo) GetItem(ctx context.Context, id int64) (Item, error) {
	item, ok := r.items[id]
	if !ok {
		return Item{}, shared.ErrNotFound
	}
	return item, nil
}

func (r *memoryRepo) CreateItem(ctx context.Context, in ItemInput) (Item, error) {
	if _, ok := r.categories[in.CategoryID]; !ok {
		return Item{}, shared.ErrNotFound
	}
	r.nextID++
	item := Item{ID: r.nextID, CategoryID: in.CategoryID, Name: in.Name, PriceCents: in.PriceCents, Available: in.Available}
	r.items[item.ID] = item
	return item, nil
}

func (r *memoryRepo) UpdateItem(ctx context.Context, id int64, in ItemInput) (Item, error) {
	item, ok := r.items[id]
	if !ok {
		return Item{}, shared.ErrNotFound
	}
	item.CategoryID, item.Name, item.PriceCents, item.Available = in.CategoryID, in.Name, in.PriceCents, in.Available
	r.items[id] = item
	return item, nil
}

func (r *memoryRepo) DeleteItem(ctx context.Context, id int64) error {
	if _, ok := r.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) ListModifiers(ctx context.Context, itemID int64) ([]Modifier, error) {
	return nil, nil
}

func (r *memoryRepo) CreateModifier(ctx context.Context, itemID int64, in ModifierInput) (Modifier, error) {
	return Modifier{}, nil
}

func (r *memoryRepo) DeleteModifier(ctx context.Context, id int64) error {
	return nil
}

type recordingAudit struct {
	actions []string
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.actions = append(a.actions, log.Action)
	return nil
}

func TestCreateItemTrimsNameAndAudits(t *testing.T) {
	repo := newMemoryRepo()
	auditLog := &recordingAudit{}
	service := NewService(repo, auditLog)
	ctx := context.Background()

	cat, err := service.CreateCategory(ctx, 7, CategoryInput{Name: "  Mains  "})
	require.NoError(t, err)
	require.Equal(t, "Mains", cat.Name)

	item, err := service.CreateItem(ctx, 7, ItemInput{CategoryID: cat.ID, Name: " Nasi Goreng ", PriceCents: 4500, Available: true})
	require.NoError(t, err)
	require.Equal(t, "Nasi Goreng", item.Name)

	require.Equal(t, []string{"menu.category.create", "menu.item.create"}, auditLog.actions)
}

func TestDeleteCategoryBlockedWhileItemsRemain(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil)
	ctx := context.Background()

	cat, err := service.CreateCategory(ctx, 1, CategoryInput{Name: "Drinks"})
	require.NoError(t, err)
	item, err := service.CreateItem(ctx, 1, ItemInput{CategoryID: cat.ID, Name: "Es Teh", PriceCents: 800, Available: true})
	require.NoError(t, err)

	err = service.DeleteCategory(ctx, 1, cat.ID)
	require.ErrorIs(t, err, ErrCategoryInUse)

	require.NoError(t, service.DeleteItem(ctx, 1, item.ID))
	require.NoError(t, service.DeleteCategory(ctx, 1, cat.ID))
}

func TestCreateItemRequiresExistingCategory(t *testing.T) {
	service := NewService(newMemoryRepo(), nil)
	_, err := service.CreateItem(context.Background(), 1, ItemInput{CategoryID: 42, Name: "Orphan", PriceCents: 100})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
