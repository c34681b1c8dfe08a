package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Summary is the dashboard payload for the admin console landing page.
type Summary struct {
	OrdersToday  int64     `json:"orders_today"`
	RevenueCents int64     `json:"revenue_cents"`
	OpenOrders   int64     `json:"open_orders"`
	TopItems     []TopItem `json:"top_items"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// TopItem ranks menu items by quantity sold today.
type TopItem struct {
	ItemID   int64  `json:"item_id"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

// Service computes dashboard figures behind the versioned cache.
type Service struct {
	pool  *pgxpool.Pool
	cache *Cache
}

// NewService builds Service.
func NewService(pool *pgxpool.Pool, cache *Cache) *Service {
	return &Service{pool: pool, cache: cache}
}

// DashboardSummary returns today's figures, served from cache when fresh.
func (s *Service) DashboardSummary(ctx context.Context) (Summary, error) {
	key, err := s.cache.BuildKey(ctx, "analytics", "dashboard")
	if err != nil {
		return Summary{}, err
	}
	var summary Summary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		return s.computeSummary(ctx)
	})
	return summary, err
}

// Warmup precomputes the dashboard so the first request after an
// invalidation does not pay the query cost.
func (s *Service) Warmup(ctx context.Context) error {
	_, err := s.DashboardSummary(ctx)
	return err
}

func (s *Service) computeSummary(ctx context.Context) (Summary, error) {
	summary := Summary{GeneratedAt: time.Now().UTC()}
	dayStart := time.Now().UTC().Truncate(24 * time.Hour)

	err := s.pool.QueryRow(ctx, `
		SELECT count(*),
		       COALESCE(sum(total_cents) FILTER (WHERE status = 'fulfilled'), 0)
		FROM orders
		WHERE created_at >= $1 AND status <> 'cancelled'`, dayStart).
		Scan(&summary.OrdersToday, &summary.RevenueCents)
	if err != nil {
		return Summary{}, err
	}

	err = s.pool.QueryRow(ctx, `
		SELECT count(*) FROM orders WHERE status IN ('open', 'submitted')`).
		Scan(&summary.OpenOrders)
	if err != nil {
		return Summary{}, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT l.item_id, l.name, sum(l.qty)::bigint AS qty
		FROM order_lines l
		JOIN orders o ON o.id = l.order_id
		WHERE o.created_at >= $1 AND o.status <> 'cancelled'
		GROUP BY l.item_id, l.name
		ORDER BY qty DESC
		LIMIT 5`, dayStart)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item TopItem
		if err := rows.Scan(&item.ItemID, &item.Name, &item.Quantity); err != nil {
			return Summary{}, err
		}
		summary.TopItems = append(summary.TopItems, item)
	}
	return summary, rows.Err()
}
