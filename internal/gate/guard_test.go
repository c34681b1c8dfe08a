package gate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gastropos/gastropos/internal/gate"
	"github.com/gastropos/gastropos/internal/rbac"
	_ "github.com/gastropos/gastropos/testing"
)

func newSettledGate(t *testing.T, auth *fakeAuth, grants *fakeGrants) (*gate.Controller, *gate.Store) {
	t.Helper()
	perms := gate.NewStore(grants, nil, nil)
	ctrl := gate.NewController(auth, gate.Options{Permissions: perms})
	t.Cleanup(ctrl.Close)
	ctrl.Start(context.Background())
	require.Eventually(t, func() bool {
		return !ctrl.Snapshot().Loading && !perms.Loading()
	}, time.Second, 5*time.Millisecond)
	return ctrl, perms
}

func TestGuardNeverAllowsWhileIndeterminate(t *testing.T) {
	auth := &fakeAuth{authenticated: true, user: staffIdentity()}
	release := make(chan struct{})
	auth.set(func(f *fakeAuth) { f.block = release })

	perms := gate.NewStore(&fakeGrants{}, nil, nil)
	ctrl := gate.NewController(auth, gate.Options{Permissions: perms})
	defer ctrl.Close()
	guard := gate.NewGuard(ctrl, perms, "")

	// Uninitialized.
	verdict := guard.Evaluate("/orders", gate.Requirement{Resource: rbac.ResourceOrder})
	assert.Equal(t, gate.VerdictPending, verdict.Kind)

	// Mid-check.
	go ctrl.CheckNow(context.Background())
	require.Eventually(t, func() bool { return auth.checks() >= 1 }, time.Second, 5*time.Millisecond)
	verdict = guard.Evaluate("/orders", gate.Requirement{Resource: rbac.ResourceOrder})
	assert.Equal(t, gate.VerdictPending, verdict.Kind)
	close(release)
}

func TestGuardRedirectsPreservingRequestedPath(t *testing.T) {
	ctrl, perms := newSettledGate(t, &fakeAuth{authenticated: false}, &fakeGrants{})
	guard := gate.NewGuard(ctrl, perms, "/login")

	verdict := guard.Evaluate("/orders", gate.Requirement{Resource: rbac.ResourceOrder, Action: rbac.ActionRead})
	require.Equal(t, gate.VerdictRedirect, verdict.Kind)
	assert.Equal(t, "/login", verdict.RedirectTo)
	assert.Equal(t, "/orders", verdict.From)
}

func TestGuardDeniesNamingResourceAndAction(t *testing.T) {
	auth := &fakeAuth{authenticated: true, user: staffIdentity()}
	grants := &fakeGrants{grants: []rbac.Grant{grant(rbac.ResourceOrder, rbac.ActionRead)}}
	ctrl, perms := newSettledGate(t, auth, grants)
	guard := gate.NewGuard(ctrl, perms, "")

	verdict := guard.Evaluate("/orders/5/edit", gate.Requirement{
		Resource: rbac.ResourceOrder,
		Action:   rbac.ActionUpdate,
	})
	require.Equal(t, gate.VerdictDenied, verdict.Kind)
	assert.Contains(t, verdict.Reason, "update order")

	verdict = guard.Evaluate("/orders", gate.Requirement{Resource: rbac.ResourceOrder})
	assert.Equal(t, gate.VerdictAllowed, verdict.Kind, "read defaults when no action declared")
}

func TestGuardSuperAdminOnlyRoutes(t *testing.T) {
	auth := &fakeAuth{authenticated: true, user: staffIdentity()}
	ctrl, perms := newSettledGate(t, auth, &fakeGrants{})
	guard := gate.NewGuard(ctrl, perms, "")

	verdict := guard.Evaluate("/settings", gate.Requirement{SuperAdminOnly: true})
	require.Equal(t, gate.VerdictDenied, verdict.Kind)

	admin := &fakeAuth{authenticated: true, user: adminIdentity()}
	adminCtrl, adminPerms := newSettledGate(t, admin, &fakeGrants{})
	adminGuard := gate.NewGuard(adminCtrl, adminPerms, "")
	verdict = adminGuard.Evaluate("/settings", gate.Requirement{SuperAdminOnly: true})
	assert.Equal(t, gate.VerdictAllowed, verdict.Kind)
}

func TestGuardFallbackPathOverridesLogin(t *testing.T) {
	ctrl, perms := newSettledGate(t, &fakeAuth{authenticated: false}, &fakeGrants{})
	guard := gate.NewGuard(ctrl, perms, "/login")

	verdict := guard.Evaluate("/reports", gate.Requirement{FallbackPath: "/welcome"})
	require.Equal(t, gate.VerdictRedirect, verdict.Kind)
	assert.Equal(t, "/welcome", verdict.RedirectTo)
}

func TestStrictGuardTimesOutWithRetryAffordance(t *testing.T) {
	auth := &fakeAuth{authenticated: true, user: staffIdentity()}
	ctrl := gate.NewController(auth, gate.Options{})
	defer ctrl.Close()
	strict := gate.NewStrictGuard(ctrl, "", 10*time.Millisecond, 50*time.Millisecond)

	// No check has run; resolution cannot settle in time.
	verdict := strict.Resolve(context.Background(), "/dashboard")
	require.Equal(t, gate.VerdictPending, verdict.Kind)
	assert.True(t, verdict.CanRetry)

	// A manual retry resolves the session and the next pass commits.
	require.True(t, strict.Retry(context.Background()).Success)
	verdict = strict.Resolve(context.Background(), "/dashboard")
	assert.Equal(t, gate.VerdictAllowed, verdict.Kind)
}

func TestStrictGuardHoldsRedirectThroughGraceWindow(t *testing.T) {
	auth := &fakeAuth{authenticated: false, user: staffIdentity()}
	ctrl := gate.NewController(auth, gate.Options{})
	defer ctrl.Close()
	ctrl.Start(context.Background())
	strict := gate.NewStrictGuard(ctrl, "/login", 150*time.Millisecond, time.Second)

	// A login landing inside the grace window must cancel the redirect.
	go func() {
		time.Sleep(30 * time.Millisecond)
		ctrl.Login(context.Background(), gate.Credentials{Email: "staff@gastropos.dev", Password: "secret"})
	}()
	verdict := strict.Resolve(context.Background(), "/dashboard")
	assert.Equal(t, gate.VerdictAllowed, verdict.Kind)
}

func TestStrictGuardRedirectsOnceSettledUnauthenticated(t *testing.T) {
	auth := &fakeAuth{authenticated: false}
	ctrl := gate.NewController(auth, gate.Options{})
	defer ctrl.Close()
	ctrl.Start(context.Background())
	strict := gate.NewStrictGuard(ctrl, "/login", 10*time.Millisecond, time.Second)

	verdict := strict.Resolve(context.Background(), "/dashboard")
	require.Equal(t, gate.VerdictRedirect, verdict.Kind)
	assert.Equal(t, "/login", verdict.RedirectTo)
	assert.Equal(t, "/dashboard", verdict.From)
}
