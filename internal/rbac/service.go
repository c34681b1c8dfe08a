package rbac

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// grantCacheTTL bounds how stale a cached role grant set may get before
// authorization re-reads it from the database.
const grantCacheTTL = 30 * time.Second

// CacheMetrics counts grant cache lookups. *observability.Metrics satisfies it.
type CacheMetrics interface {
	ObservePermissionCache(result string)
}

type grantEntry struct {
	grants    []Grant
	fetchedAt time.Time
}

// Service orchestrates role and grant persistence.
type Service struct {
	pool    *pgxpool.Pool
	metrics CacheMetrics

	mu         sync.Mutex
	grantCache map[Role]grantEntry
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool, grantCache: make(map[Role]grantEntry)}
}

// SetMetrics attaches a cache lookup counter. Safe to leave unset.
func (s *Service) SetMetrics(m CacheMetrics) {
	s.metrics = m
}

// RoleOf resolves the stored role for a user.
func (s *Service) RoleOf(ctx context.Context, userID int64) (Role, error) {
	var raw string
	err := s.pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1 AND is_active`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return ParseRole(raw), nil
}

// EffectiveGrants returns the grant set attached to a role. Roles with
// BypassAll never consult this, so an empty result for them is fine.
func (s *Service) EffectiveGrants(ctx context.Context, role Role) ([]Grant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT resource, action, active, description
		FROM role_grants
		WHERE role_name = $1
		ORDER BY resource, action`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		var resource, action string
		if err := rows.Scan(&resource, &action, &g.Active, &g.Description); err != nil {
			return nil, err
		}
		g.Resource = Resource(resource)
		g.Action = Action(action)
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// ReplaceGrants swaps the full grant set for a role in one transaction.
func (s *Service) ReplaceGrants(ctx context.Context, role Role, grants []Grant) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM role_grants WHERE role_name = $1`, string(role)); err != nil {
		return err
	}
	for _, g := range grants {
		_, err := tx.Exec(ctx, `
			INSERT INTO role_grants (role_name, resource, action, active, description, created_at)
			VALUES ($1, $2, $3, $4, $5, now())`,
			string(role), string(g.Resource), string(g.Action), g.Active, g.Description)
		if err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.grantCache, role)
	s.mu.Unlock()
	return nil
}

// cachedGrants returns the grant set for a role, serving from the in-memory
// cache while the entry is fresh.
func (s *Service) cachedGrants(ctx context.Context, role Role) ([]Grant, error) {
	s.mu.Lock()
	entry, ok := s.grantCache[role]
	s.mu.Unlock()
	if ok && time.Since(entry.fetchedAt) < grantCacheTTL {
		if s.metrics != nil {
			s.metrics.ObservePermissionCache("hit")
		}
		return entry.grants, nil
	}
	if s.metrics != nil {
		s.metrics.ObservePermissionCache("miss")
	}

	grants, err := s.EffectiveGrants(ctx, role)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.grantCache[role] = grantEntry{grants: grants, fetchedAt: time.Now()}
	s.mu.Unlock()
	return grants, nil
}

// Allowed runs the authorization decision for a user on the server side.
// The rules mirror the client gate: bypass roles first, then standing
// resources, then the stored grant set.
func (s *Service) Allowed(ctx context.Context, userID int64, resource Resource, action Action) (bool, error) {
	role, err := s.RoleOf(ctx, userID)
	if err != nil {
		return false, err
	}
	caps := CapabilitiesFor(role)
	if caps.BypassAll {
		return true, nil
	}
	for _, r := range caps.StandingResources {
		if r == resource {
			return true, nil
		}
	}

	grants, err := s.cachedGrants(ctx, role)
	if err != nil {
		return false, err
	}
	for _, g := range grants {
		if g.Resource == resource && g.Action == action {
			return g.Active, nil
		}
	}
	return false, nil
}

// defaultGrants is the out-of-the-box permission matrix applied by Seed.
var defaultGrants = map[Role][]Grant{
	RoleRestaurantAdmin: {
		{Resource: ResourceMenu, Action: ActionCreate, Active: true},
		{Resource: ResourceMenu, Action: ActionRead, Active: true},
		{Resource: ResourceMenu, Action: ActionUpdate, Active: true},
		{Resource: ResourceMenu, Action: ActionDelete, Active: true},
		{Resource: ResourceCategory, Action: ActionCreate, Active: true},
		{Resource: ResourceCategory, Action: ActionRead, Active: true},
		{Resource: ResourceCategory, Action: ActionUpdate, Active: true},
		{Resource: ResourceCategory, Action: ActionDelete, Active: true},
		{Resource: ResourceModifier, Action: ActionCreate, Active: true},
		{Resource: ResourceModifier, Action: ActionRead, Active: true},
		{Resource: ResourceModifier, Action: ActionUpdate, Active: true},
		{Resource: ResourceModifier, Action: ActionDelete, Active: true},
		{Resource: ResourceOrder, Action: ActionCreate, Active: true},
		{Resource: ResourceOrder, Action: ActionRead, Active: true},
		{Resource: ResourceOrder, Action: ActionUpdate, Active: true},
		{Resource: ResourceOrder, Action: ActionDelete, Active: true},
		{Resource: ResourceInventory, Action: ActionCreate, Active: true},
		{Resource: ResourceInventory, Action: ActionRead, Active: true},
		{Resource: ResourceInventory, Action: ActionUpdate, Active: true},
		{Resource: ResourceInvoice, Action: ActionCreate, Active: true},
		{Resource: ResourceInvoice, Action: ActionRead, Active: true},
		{Resource: ResourceUser, Action: ActionCreate, Active: true},
		{Resource: ResourceUser, Action: ActionRead, Active: true},
		{Resource: ResourceUser, Action: ActionUpdate, Active: true},
		{Resource: ResourceReport, Action: ActionRead, Active: true},
	},
	RoleManager: {
		{Resource: ResourceMenu, Action: ActionRead, Active: true},
		{Resource: ResourceMenu, Action: ActionUpdate, Active: true},
		{Resource: ResourceCategory, Action: ActionRead, Active: true},
		{Resource: ResourceModifier, Action: ActionRead, Active: true},
		{Resource: ResourceOrder, Action: ActionCreate, Active: true},
		{Resource: ResourceOrder, Action: ActionRead, Active: true},
		{Resource: ResourceOrder, Action: ActionUpdate, Active: true},
		{Resource: ResourceInventory, Action: ActionRead, Active: true},
		{Resource: ResourceInventory, Action: ActionUpdate, Active: true},
		{Resource: ResourceInvoice, Action: ActionRead, Active: true},
		{Resource: ResourceReport, Action: ActionRead, Active: true},
	},
	RoleStaff: {
		{Resource: ResourceMenu, Action: ActionRead, Active: true},
		{Resource: ResourceOrder, Action: ActionCreate, Active: true},
		{Resource: ResourceOrder, Action: ActionRead, Active: true},
		{Resource: ResourceOrder, Action: ActionUpdate, Active: true},
	},
}

// Seed installs the default grant matrix for every non-bypass role,
// replacing whatever is currently stored.
func (s *Service) Seed(ctx context.Context) error {
	for role, grants := range defaultGrants {
		if err := s.ReplaceGrants(ctx, role, grants); err != nil {
			return err
		}
	}
	return nil
}

// DefaultGrants exposes a copy of the seeded matrix for a role.
func DefaultGrants(role Role) []Grant {
	src := defaultGrants[role]
	out := make([]Grant, len(src))
	copy(out, src)
	return out
}
