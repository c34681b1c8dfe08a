package gate_test

import (
	"context"
	"sync"

	"github.com/gastropos/gastropos/internal/gate"
	"github.com/gastropos/gastropos/internal/rbac"
)

// fakeAuth is a scriptable AuthTransport.
type fakeAuth struct {
	mu            sync.Mutex
	authenticated bool
	user          *gate.Identity
	loginErr      error
	registerUser  *gate.Identity
	registerErr   error
	logoutErr     error
	refreshOK     bool
	refreshErr    error

	identityChecks int
	refreshCalls   int
	logoutCalls    int

	// block, when set, stalls identity checks until closed.
	block chan struct{}
}

func (f *fakeAuth) IsAuthenticated(ctx context.Context) (bool, error) {
	// The answer is captured at call time so a stalled check resolves with
	// the state the server held when it was issued.
	f.mu.Lock()
	f.identityChecks++
	blocker := f.block
	answer := f.authenticated
	f.mu.Unlock()
	if blocker != nil {
		select {
		case <-blocker:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return answer, nil
}

func (f *fakeAuth) CurrentUser(ctx context.Context) (*gate.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.authenticated {
		return nil, nil
	}
	return f.user, nil
}

func (f *fakeAuth) Login(ctx context.Context, creds gate.Credentials) (*gate.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.authenticated = true
	return f.user, nil
}

func (f *fakeAuth) Register(ctx context.Context, reg gate.Registration) (*gate.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return f.registerUser, nil
}

func (f *fakeAuth) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	if f.logoutErr != nil {
		// Server-side logout failed; the session stays live remotely.
		return f.logoutErr
	}
	f.authenticated = false
	return nil
}

func (f *fakeAuth) RefreshToken(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	return f.refreshOK, f.refreshErr
}

func (f *fakeAuth) set(fn func(*fakeAuth)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeAuth) checks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identityChecks
}

func (f *fakeAuth) refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

// fakeGrants is a scriptable PermissionTransport.
type fakeGrants struct {
	mu     sync.Mutex
	grants []rbac.Grant
	err    error
	calls  int
	seeded int

	// block, when set, stalls grant fetches until closed.
	block chan struct{}
}

func (f *fakeGrants) UserGrants(ctx context.Context) ([]rbac.Grant, error) {
	f.mu.Lock()
	f.calls++
	blocker := f.block
	f.mu.Unlock()
	if blocker != nil {
		select {
		case <-blocker:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]rbac.Grant, len(f.grants))
	copy(out, f.grants)
	return out, nil
}

func (f *fakeGrants) SeedPermissions(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeded++
	return nil
}

func (f *fakeGrants) set(fn func(*fakeGrants)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeGrants) loadCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func grant(resource rbac.Resource, action rbac.Action) rbac.Grant {
	return rbac.Grant{Resource: resource, Action: action, Active: true}
}

func staffIdentity() *gate.Identity {
	return &gate.Identity{ID: 7, Email: "staff@gastropos.dev", Name: "Staff", Role: rbac.RoleStaff}
}

func adminIdentity() *gate.Identity {
	return &gate.Identity{ID: 1, Email: "root@gastropos.dev", Name: "Root", Role: rbac.RoleSystemAdmin}
}

func restaurantAdminIdentity() *gate.Identity {
	return &gate.Identity{ID: 3, Email: "owner@gastropos.dev", Name: "Owner", Role: rbac.RoleRestaurantAdmin}
}
