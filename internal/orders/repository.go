package orders

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gastropos/gastropos/internal/shared"
)

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `id, code, status, table_no, note, total_cents, created_by, created_at, updated_at`

// Insert stores the order header and its lines in one transaction.
func (r *Repository) Insert(ctx context.Context, order Order) (Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO orders (code, status, table_no, note, total_cents, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+orderColumns,
		order.Code, string(order.Status), order.TableNo, order.Note, order.TotalCents, order.CreatedBy)
	stored, err := scanOrder(row)
	if err != nil {
		return Order{}, err
	}

	for _, line := range order.Lines {
		var lineID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO order_lines (order_id, item_id, name, qty, unit_price_cents)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			stored.ID, line.ItemID, line.Name, line.Qty, line.UnitPriceCents).Scan(&lineID)
		if err != nil {
			return Order{}, err
		}
		line.ID = lineID
		line.OrderID = stored.ID
		stored.Lines = append(stored.Lines, line)
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return stored, nil
}

// Get loads an order with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, shared.ErrNotFound
		}
		return Order{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, item_id, name, qty, unit_price_cents
		FROM order_lines WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ItemID, &l.Name, &l.Qty, &l.UnitPriceCents); err != nil {
			return Order{}, err
		}
		order.Lines = append(order.Lines, l)
	}
	return order, rows.Err()
}

// List returns order headers matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Order, int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM orders
		WHERE ($1 = '' OR status = $1)
		  AND ($2::timestamptz IS NULL OR created_at >= $2)`,
		string(filter.Status), nullTime(filter.Since)).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ($1 = '' OR status = $1)
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		string(filter.Status), nullTime(filter.Since), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, order)
	}
	return list, total, rows.Err()
}

// UpdateStatus moves the order between states, guarding the transition in
// SQL so concurrent updates cannot skip a step.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to Status) (Order, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+orderColumns,
		id, string(from), string(to))
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either missing or not in the expected state, disambiguate.
		if _, getErr := r.Get(ctx, id); errors.Is(getErr, shared.ErrNotFound) {
			return Order{}, shared.ErrNotFound
		}
		return Order{}, TransitionError(from, to)
	}
	return order, err
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var status string
	err := row.Scan(&o.ID, &o.Code, &status, &o.TableNo, &o.Note, &o.TotalCents, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	o.Status = Status(status)
	return o, err
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
