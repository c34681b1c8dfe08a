package menu

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gastropos/gastropos/internal/shared"
)

// Repository persists menu data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, sort_order, created_at, updated_at
		FROM menu_categories ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *Repository) CreateCategory(ctx context.Context, in CategoryInput) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `
		INSERT INTO menu_categories (name, sort_order, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		RETURNING id, name, sort_order, created_at, updated_at`,
		in.Name, in.SortOrder).Scan(&c.ID, &c.Name, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *Repository) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `
		UPDATE menu_categories SET name = $2, sort_order = $3, updated_at = now()
		WHERE id = $1
		RETURNING id, name, sort_order, created_at, updated_at`,
		id, in.Name, in.SortOrder).Scan(&c.ID, &c.Name, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, shared.ErrNotFound
	}
	return c, err
}

func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_categories WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrCategoryInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const itemColumns = `id, category_id, name, description, price_cents, available, created_at, updated_at`

func (r *Repository) ListItems(ctx context.Context, categoryID int64, limit, offset int) ([]Item, int, error) {
	// categoryID 0 means no filter.
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM menu_items
		WHERE ($1 = 0 OR category_id = $1)`, categoryID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+itemColumns+` FROM menu_items
		WHERE ($1 = 0 OR category_id = $1)
		ORDER BY name LIMIT $2 OFFSET $3`, categoryID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM menu_items WHERE id = $1`, id)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, shared.ErrNotFound
	}
	return item, err
}

func (r *Repository) CreateItem(ctx context.Context, in ItemInput) (Item, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO menu_items (category_id, name, description, price_cents, available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING `+itemColumns,
		in.CategoryID, in.Name, in.Description, in.PriceCents, in.Available)
	item, err := scanItem(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Item{}, shared.ErrNotFound
		}
	}
	return item, err
}

func (r *Repository) UpdateItem(ctx context.Context, id int64, in ItemInput) (Item, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE menu_items
		SET category_id = $2, name = $3, description = $4, price_cents = $5, available = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+itemColumns,
		id, in.CategoryID, in.Name, in.Description, in.PriceCents, in.Available)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, shared.ErrNotFound
	}
	return item, err
}

func (r *Repository) DeleteItem(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) ListModifiers(ctx context.Context, itemID int64) ([]Modifier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, item_id, name, price_cents FROM menu_modifiers
		WHERE item_id = $1 ORDER BY name`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mods []Modifier
	for rows.Next() {
		var m Modifier
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Name, &m.PriceCents); err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, rows.Err()
}

func (r *Repository) CreateModifier(ctx context.Context, itemID int64, in ModifierInput) (Modifier, error) {
	var m Modifier
	err := r.pool.QueryRow(ctx, `
		INSERT INTO menu_modifiers (item_id, name, price_cents)
		VALUES ($1, $2, $3)
		RETURNING id, item_id, name, price_cents`,
		itemID, in.Name, in.PriceCents).Scan(&m.ID, &m.ItemID, &m.Name, &m.PriceCents)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Modifier{}, shared.ErrNotFound
		}
		return Modifier{}, err
	}
	return m, nil
}

func (r *Repository) DeleteModifier(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_modifiers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanItem(row pgx.Row) (Item, error) {
	var i Item
	err := row.Scan(&i.ID, &i.CategoryID, &i.Name, &i.Description, &i.PriceCents, &i.Available, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}
