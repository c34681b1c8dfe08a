package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gastropos/gastropos/internal/platform/db"
	"github.com/gastropos/gastropos/internal/shared"
)

// Repository persists stock data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `id, name, unit, on_hand, reorder_level, created_at, updated_at`

func (r *Repository) List(ctx context.Context) ([]StockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM stock_items ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func (r *Repository) ListLow(ctx context.Context) ([]StockItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+itemColumns+` FROM stock_items
		WHERE on_hand <= reorder_level ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func (r *Repository) Get(ctx context.Context, id int64) (StockItem, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM stock_items WHERE id = $1`, id)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockItem{}, shared.ErrNotFound
	}
	return item, err
}

func (r *Repository) Create(ctx context.Context, in StockItemInput) (StockItem, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO stock_items (name, unit, on_hand, reorder_level, created_at, updated_at)
		VALUES ($1, $2, 0, $3, now(), now())
		RETURNING `+itemColumns,
		in.Name, in.Unit, in.ReorderLevel)
	return scanItem(row)
}

func (r *Repository) Update(ctx context.Context, id int64, in StockItemInput) (StockItem, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE stock_items SET name = $2, unit = $3, reorder_level = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+itemColumns,
		id, in.Name, in.Unit, in.ReorderLevel)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockItem{}, shared.ErrNotFound
	}
	return item, err
}

// Record applies the movement and adjusts the on-hand quantity in one
// transaction. The quantity guard keeps on_hand from going negative even
// under concurrent adjustments.
func (r *Repository) Record(ctx context.Context, m Movement) (Movement, error) {
	delta := m.Quantity
	if m.Type.Deducts() {
		delta = -delta
	}

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE stock_items SET on_hand = on_hand + $2, updated_at = now()
			WHERE id = $1 AND on_hand + $2 >= 0`, m.ItemID, delta)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT true FROM stock_items WHERE id = $1`, m.ItemID).Scan(&exists); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return shared.ErrNotFound
				}
				return err
			}
			return ErrInsufficientStock
		}
		return tx.QueryRow(ctx, `
			INSERT INTO stock_movements (item_id, movement_type, quantity, note, actor_id, occurred_at)
			VALUES ($1, $2, $3, $4, $5, now())
			RETURNING id, occurred_at`,
			m.ItemID, string(m.Type), m.Quantity, m.Note, m.ActorID).Scan(&m.ID, &m.At)
	})
	if err != nil {
		return Movement{}, err
	}
	return m, nil
}

func (r *Repository) Movements(ctx context.Context, itemID int64, limit int) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, item_id, movement_type, quantity, note, actor_id, occurred_at
		FROM stock_movements
		WHERE item_id = $1 ORDER BY occurred_at DESC LIMIT $2`, itemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var moves []Movement
	for rows.Next() {
		var m Movement
		var kind string
		if err := rows.Scan(&m.ID, &m.ItemID, &kind, &m.Quantity, &m.Note, &m.ActorID, &m.At); err != nil {
			return nil, err
		}
		m.Type = MovementType(kind)
		moves = append(moves, m)
	}
	return moves, rows.Err()
}

func collectItems(rows pgx.Rows) ([]StockItem, error) {
	var items []StockItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(row pgx.Row) (StockItem, error) {
	var i StockItem
	err := row.Scan(&i.ID, &i.Name, &i.Unit, &i.OnHand, &i.ReorderLevel, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}
