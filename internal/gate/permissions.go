package gate

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/gastropos/gastropos/internal/rbac"
)

// CRUD is the four-way permission summary for one resource.
type CRUD struct {
	Create bool `json:"create"`
	Read   bool `json:"read"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

type pairKey struct {
	resource rbac.Resource
	action   rbac.Action
}

// Store answers "can the current user perform action A on resource R". It
// holds the grant set for exactly one identity at a time; any identity change
// wipes every cache before a full reload, never a partial merge.
type Store struct {
	transport PermissionTransport
	mirror    Mirror
	logger    *slog.Logger

	mu            sync.Mutex
	role          rbac.Role
	userKey       string
	authenticated bool
	loading       bool
	loadSeq       uint64
	grants        []rbac.Grant
	lastErr       error
	pairCache     map[pairKey]bool
	resourceCache map[rbac.Resource]CRUD
}

// NewStore constructs a Store. The mirror is optional.
func NewStore(transport PermissionTransport, mirror Mirror, logger *slog.Logger) *Store {
	s := &Store{transport: transport, mirror: mirror, logger: logger}
	s.wipeLocked()
	return s
}

// SetIdentity binds the store to a new identity, discarding every cached
// verdict and grant from the previous one.
func (s *Store) SetIdentity(user *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipeLocked()
	s.role = user.Role
	s.userKey = strconv.FormatInt(user.ID, 10)
	s.authenticated = true
	s.loading = true
	s.loadSeq++
}

// ClearIdentity empties the store. Permission checks against a cleared store
// always answer no access.
func (s *Store) ClearIdentity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipeLocked()
	s.role = ""
	s.userKey = ""
	s.authenticated = false
	s.loading = false
	s.loadSeq++
}

// Load fetches the full grant set for the bound identity. Caches are cleared
// synchronously before the fetch is issued, so no reader ever sees a mix of
// old and new grants. Failure degrades to an empty grant set with the error
// recorded; Load never propagates it.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	if !s.authenticated {
		s.mu.Unlock()
		return
	}
	s.loadSeq++
	seq := s.loadSeq
	s.wipeLocked()
	s.loading = true
	key := s.userKey
	s.mu.Unlock()

	grants, err := s.transport.UserGrants(ctx)

	s.mu.Lock()
	if seq != s.loadSeq || !s.authenticated {
		// A newer load or an identity change superseded this fetch.
		s.mu.Unlock()
		return
	}
	s.loading = false
	if err != nil {
		s.grants = nil
		s.lastErr = err
		s.mu.Unlock()
		if s.logger != nil {
			s.logger.Warn("load grants", slog.Any("error", err))
		}
		return
	}
	s.grants = grants
	s.lastErr = nil
	s.mu.Unlock()

	if s.mirror != nil {
		if err := s.mirror.Store(ctx, key, grants); err != nil && s.logger != nil {
			s.logger.Warn("mirror grants", slog.Any("error", err))
		}
	}
}

// WarmFromMirror pre-populates grants from the durable mirror while the
// authoritative load is still pending. Mirrored grants do not settle the
// loading state.
func (s *Store) WarmFromMirror(ctx context.Context) {
	if s.mirror == nil {
		return
	}
	s.mu.Lock()
	key := s.userKey
	warm := s.authenticated && s.loading && len(s.grants) == 0
	s.mu.Unlock()
	if !warm {
		return
	}
	grants, ok, err := s.mirror.Load(ctx, key)
	if err != nil || !ok {
		return
	}
	s.mu.Lock()
	if s.authenticated && s.loading && len(s.grants) == 0 {
		s.grants = grants
	}
	s.mu.Unlock()
}

// HasPermission reports whether the bound identity may perform action on
// resource. Decision precedence: role bypass, standing resources, cached
// verdict, provisional loading allowance, then the loaded grant set.
func (s *Store) HasPermission(resource rbac.Resource, action rbac.Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authenticated {
		return false
	}
	caps := rbac.CapabilitiesFor(s.role)
	if caps.BypassAll {
		return true
	}
	if containsResource(caps.StandingResources, resource) {
		return true
	}
	key := pairKey{resource: resource, action: action}
	if verdict, ok := s.pairCache[key]; ok {
		return verdict
	}
	if s.loading && containsResource(caps.ProvisionalResources, resource) {
		// Provisional access during the loading window is never memoized.
		return true
	}
	verdict := s.computeLocked(resource, action)
	if !s.loading {
		// Verdicts computed mid-load come from an incomplete grant set and
		// must not outlive the load.
		s.pairCache[key] = verdict
	}
	return verdict
}

// ResourcePermissions derives the CRUD summary for one resource, memoized
// per resource once the grant set has settled.
func (s *Store) ResourcePermissions(resource rbac.Resource) CRUD {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authenticated {
		return CRUD{}
	}
	if rbac.CapabilitiesFor(s.role).BypassAll {
		return CRUD{Create: true, Read: true, Update: true, Delete: true}
	}
	if cached, ok := s.resourceCache[resource]; ok {
		return cached
	}
	summary := CRUD{
		Create: s.allowedLocked(resource, rbac.ActionCreate),
		Read:   s.allowedLocked(resource, rbac.ActionRead),
		Update: s.allowedLocked(resource, rbac.ActionUpdate),
		Delete: s.allowedLocked(resource, rbac.ActionDelete),
	}
	if !s.loading {
		s.resourceCache[resource] = summary
	}
	return summary
}

// CanAccess reports whether the resource is at least readable.
func (s *Store) CanAccess(resource rbac.Resource) bool {
	s.mu.Lock()
	bypass := s.authenticated && rbac.CapabilitiesFor(s.role).BypassAll
	s.mu.Unlock()
	if bypass {
		return true
	}
	return s.HasPermission(resource, rbac.ActionRead)
}

// AccessibleResources enumerates the static resource catalog, returning the
// subset the identity can access. A grant for a resource outside the catalog
// is invisible here.
func (s *Store) AccessibleResources() []rbac.Resource {
	s.mu.Lock()
	bypass := s.authenticated && rbac.CapabilitiesFor(s.role).BypassAll
	s.mu.Unlock()
	if bypass {
		return rbac.AllResources()
	}
	var out []rbac.Resource
	for _, resource := range rbac.AllResources() {
		if s.CanAccess(resource) {
			out = append(out, resource)
		}
	}
	return out
}

// Refresh wipes every cache, clears the durable mirror, and reloads the
// grant set from the transport.
func (s *Store) Refresh(ctx context.Context) {
	s.mu.Lock()
	key := s.userKey
	s.wipeLocked()
	s.mu.Unlock()
	if s.mirror != nil && key != "" {
		if err := s.mirror.Clear(ctx, key); err != nil && s.logger != nil {
			s.logger.Warn("clear grant mirror", slog.Any("error", err))
		}
	}
	s.Load(ctx)
}

// Seed triggers administrative permission bootstrap on the server.
func (s *Store) Seed(ctx context.Context) error {
	return s.transport.SeedPermissions(ctx)
}

// Loading reports whether a grant load is pending.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastError returns the most recent load failure, if any.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Grants returns a copy of the loaded grant set.
func (s *Store) Grants() []rbac.Grant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]rbac.Grant, len(s.grants))
	copy(out, s.grants)
	return out
}

func (s *Store) wipeLocked() {
	s.grants = nil
	s.lastErr = nil
	s.pairCache = make(map[pairKey]bool)
	s.resourceCache = make(map[rbac.Resource]CRUD)
}

// allowedLocked applies the same precedence as HasPermission minus the
// memoization, for use while already holding the lock.
func (s *Store) allowedLocked(resource rbac.Resource, action rbac.Action) bool {
	caps := rbac.CapabilitiesFor(s.role)
	if containsResource(caps.StandingResources, resource) {
		return true
	}
	if verdict, ok := s.pairCache[pairKey{resource: resource, action: action}]; ok {
		return verdict
	}
	if s.loading && containsResource(caps.ProvisionalResources, resource) {
		return true
	}
	return s.computeLocked(resource, action)
}

func (s *Store) computeLocked(resource rbac.Resource, action rbac.Action) bool {
	for _, grant := range s.grants {
		if grant.Active && grant.Resource == resource && grant.Action == action {
			return true
		}
	}
	return false
}

func containsResource(list []rbac.Resource, resource rbac.Resource) bool {
	for _, candidate := range list {
		if candidate == resource {
			return true
		}
	}
	return false
}
