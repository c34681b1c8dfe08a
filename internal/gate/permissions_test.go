package gate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gastropos/gastropos/internal/gate"
	"github.com/gastropos/gastropos/internal/rbac"
	_ "github.com/gastropos/gastropos/testing"
)

func TestSystemAdminBypassesAllChecks(t *testing.T) {
	// No grants loaded at all; the bypass must not depend on load state.
	perms := gate.NewStore(&fakeGrants{}, nil, nil)
	perms.SetIdentity(adminIdentity())

	for _, resource := range rbac.AllResources() {
		for _, action := range rbac.AllActions() {
			assert.True(t, perms.HasPermission(resource, action), "%s %s", action, resource)
		}
	}
	assert.True(t, perms.HasPermission(rbac.ResourceInvoice, rbac.ActionDelete))
	assert.Equal(t, gate.CRUD{Create: true, Read: true, Update: true, Delete: true},
		perms.ResourcePermissions(rbac.ResourceMenu))
	assert.Equal(t, rbac.AllResources(), perms.AccessibleResources())
}

func TestChecksAgainstClearedStoreDenyEverything(t *testing.T) {
	grants := &fakeGrants{grants: []rbac.Grant{grant(rbac.ResourceOrder, rbac.ActionRead)}}
	perms := gate.NewStore(grants, nil, nil)
	perms.SetIdentity(staffIdentity())
	perms.Load(context.Background())
	require.True(t, perms.HasPermission(rbac.ResourceOrder, rbac.ActionRead))

	perms.ClearIdentity()
	assert.False(t, perms.HasPermission(rbac.ResourceOrder, rbac.ActionRead))
	assert.Empty(t, perms.AccessibleResources())
}

func TestIdentityChangeWipesEveryCachedVerdict(t *testing.T) {
	grants := &fakeGrants{grants: []rbac.Grant{grant(rbac.ResourceOrder, rbac.ActionRead)}}
	perms := gate.NewStore(grants, nil, nil)

	perms.SetIdentity(staffIdentity())
	perms.Load(context.Background())
	require.True(t, perms.HasPermission(rbac.ResourceOrder, rbac.ActionRead))
	require.True(t, perms.CanAccess(rbac.ResourceOrder))

	// A different user with a different grant set signs in.
	grants.set(func(f *fakeGrants) {
		f.grants = []rbac.Grant{grant(rbac.ResourceMenu, rbac.ActionRead)}
	})
	perms.SetIdentity(&gate.Identity{ID: 99, Email: "other@gastropos.dev", Role: rbac.RoleStaff})
	perms.Load(context.Background())

	assert.False(t, perms.HasPermission(rbac.ResourceOrder, rbac.ActionRead),
		"verdict cached for the prior user must not survive")
	assert.True(t, perms.HasPermission(rbac.ResourceMenu, rbac.ActionRead))
}

func TestRefreshRecomputesFromTransport(t *testing.T) {
	grants := &fakeGrants{grants: []rbac.Grant{grant(rbac.ResourceOrder, rbac.ActionRead)}}
	mirror := gate.NewMemoryMirror()
	perms := gate.NewStore(grants, mirror, nil)

	perms.SetIdentity(staffIdentity())
	perms.Load(context.Background())
	require.True(t, perms.HasPermission(rbac.ResourceOrder, rbac.ActionRead))
	require.Equal(t, 1, grants.loadCalls())

	grants.set(func(f *fakeGrants) { f.grants = nil })
	perms.Refresh(context.Background())

	assert.Equal(t, 2, grants.loadCalls())
	assert.False(t, perms.HasPermission(rbac.ResourceOrder, rbac.ActionRead))
}

func TestRestaurantAdminStandingAndProvisionalAccess(t *testing.T) {
	grants := &fakeGrants{}
	perms := gate.NewStore(grants, nil, nil)
	perms.SetIdentity(restaurantAdminIdentity())

	// Still loading: provisional access to restaurant-domain resources.
	require.True(t, perms.Loading())
	assert.True(t, perms.HasPermission(rbac.ResourceMenu, rbac.ActionUpdate))
	assert.True(t, perms.HasPermission(rbac.ResourceOrder, rbac.ActionCreate))
	assert.False(t, perms.HasPermission(rbac.ResourceUser, rbac.ActionRead),
		"provisional access is scoped to the allow-list")

	// The grant set resolves empty: provisional access must not have been
	// memoized, while the standing restaurant exception survives.
	perms.Load(context.Background())
	require.False(t, perms.Loading())
	assert.False(t, perms.HasPermission(rbac.ResourceMenu, rbac.ActionUpdate))
	assert.True(t, perms.HasPermission(rbac.ResourceRestaurant, rbac.ActionDelete))
}

func TestVerdictDuringLoadWindowIsNotMemoized(t *testing.T) {
	release := make(chan struct{})
	grants := &fakeGrants{grants: []rbac.Grant{grant(rbac.ResourceMenu, rbac.ActionRead)}}
	grants.set(func(f *fakeGrants) { f.block = release })
	perms := gate.NewStore(grants, nil, nil)
	perms.SetIdentity(staffIdentity())

	done := make(chan struct{})
	go func() { perms.Load(context.Background()); close(done) }()
	require.Eventually(t, func() bool { return grants.loadCalls() >= 1 }, time.Second, 5*time.Millisecond)

	// The grant set is still in flight; the denial here must not stick.
	require.True(t, perms.Loading())
	require.False(t, perms.HasPermission(rbac.ResourceMenu, rbac.ActionRead))

	close(release)
	<-done
	require.False(t, perms.Loading())
	assert.True(t, perms.HasPermission(rbac.ResourceMenu, rbac.ActionRead),
		"denial computed while the grants were in flight must not mask the loaded grant")
}

func TestLoadFailureDegradesToEmptyGrantSet(t *testing.T) {
	grants := &fakeGrants{err: errors.New("permission service unavailable")}
	perms := gate.NewStore(grants, nil, nil)
	perms.SetIdentity(staffIdentity())

	perms.Load(context.Background())

	assert.Error(t, perms.LastError())
	assert.Empty(t, perms.Grants())
	assert.False(t, perms.HasPermission(rbac.ResourceOrder, rbac.ActionRead))
}

func TestAccessibleResourcesEnumeratesStaticCatalog(t *testing.T) {
	grants := &fakeGrants{grants: []rbac.Grant{
		grant(rbac.ResourceOrder, rbac.ActionRead),
		// A grant for a resource outside the catalog is never surfaced.
		grant(rbac.Resource("loyalty_program"), rbac.ActionRead),
	}}
	perms := gate.NewStore(grants, nil, nil)
	perms.SetIdentity(staffIdentity())
	perms.Load(context.Background())

	assert.Equal(t, []rbac.Resource{rbac.ResourceOrder}, perms.AccessibleResources())
	assert.True(t, perms.HasPermission(rbac.Resource("loyalty_program"), rbac.ActionRead),
		"the direct check still honors the grant")
}

func TestResourcePermissionsSummary(t *testing.T) {
	grants := &fakeGrants{grants: []rbac.Grant{
		grant(rbac.ResourceMenu, rbac.ActionRead),
		grant(rbac.ResourceMenu, rbac.ActionUpdate),
	}}
	perms := gate.NewStore(grants, nil, nil)
	perms.SetIdentity(staffIdentity())
	perms.Load(context.Background())

	assert.Equal(t, gate.CRUD{Read: true, Update: true}, perms.ResourcePermissions(rbac.ResourceMenu))
	assert.Equal(t, gate.CRUD{}, perms.ResourcePermissions(rbac.ResourceInvoice))
}

func TestWarmFromMirrorBridgesTheLoadingWindow(t *testing.T) {
	mirror := gate.NewMemoryMirror()
	require.NoError(t, mirror.Store(context.Background(), "7", []rbac.Grant{
		grant(rbac.ResourceOrder, rbac.ActionRead),
	}))

	perms := gate.NewStore(&fakeGrants{}, mirror, nil)
	perms.SetIdentity(staffIdentity())
	perms.WarmFromMirror(context.Background())

	assert.True(t, perms.Loading(), "mirrored grants do not settle the load")
	assert.Len(t, perms.Grants(), 1)
}

func TestRefreshClearsDurableMirror(t *testing.T) {
	grants := &fakeGrants{grants: []rbac.Grant{grant(rbac.ResourceOrder, rbac.ActionRead)}}
	mirror := gate.NewMemoryMirror()
	perms := gate.NewStore(grants, mirror, nil)
	perms.SetIdentity(staffIdentity())
	perms.Load(context.Background())

	_, ok, err := mirror.Load(context.Background(), "7")
	require.NoError(t, err)
	require.True(t, ok)

	// Transport now fails: refresh must leave neither cache nor mirror.
	grants.set(func(f *fakeGrants) { f.err = errors.New("boom") })
	perms.Refresh(context.Background())

	_, ok, err = mirror.Load(context.Background(), "7")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, perms.Grants())
}
