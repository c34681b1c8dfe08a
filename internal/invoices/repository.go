package invoices

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gastropos/gastropos/internal/shared"
)

// Repository persists invoices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `i.id, i.number, i.order_id, o.code, i.subtotal_cents, i.tax_cents, i.total_cents, i.currency, i.issued_by, i.issued_at`

// Insert stores a new invoice. A unique index on order_id surfaces double
// invoicing as ErrAlreadyInvoiced.
func (r *Repository) Insert(ctx context.Context, inv Invoice) (Invoice, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO invoices (number, order_id, subtotal_cents, tax_cents, total_cents, currency, issued_by, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id`,
		inv.Number, inv.OrderID, inv.SubtotalCents, inv.TaxCents, inv.TotalCents, inv.Currency, inv.IssuedBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Invoice{}, ErrAlreadyInvoiced
		}
		return Invoice{}, err
	}
	return r.Get(ctx, id)
}

// Get loads one invoice joined with its order code.
func (r *Repository) Get(ctx context.Context, id int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices i JOIN orders o ON o.id = i.order_id
		WHERE i.id = $1`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, shared.ErrNotFound
	}
	return inv, err
}

// List returns invoices newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Invoice, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM invoices`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices i JOIN orders o ON o.id = i.order_id
		ORDER BY i.issued_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, inv)
	}
	return list, total, rows.Err()
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.OrderID, &inv.OrderCode, &inv.SubtotalCents,
		&inv.TaxCents, &inv.TotalCents, &inv.Currency, &inv.IssuedBy, &inv.IssuedAt)
	return inv, err
}
