package gate_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gastropos/gastropos/internal/gate"
	"github.com/gastropos/gastropos/internal/rbac"
	_ "github.com/gastropos/gastropos/testing"
)

func newRedisMirror(t *testing.T) (*gate.RedisMirror, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return gate.NewRedisMirror(client, time.Minute), mr
}

func TestRedisMirrorRoundTrip(t *testing.T) {
	mirror, _ := newRedisMirror(t)
	ctx := context.Background()

	_, ok, err := mirror.Load(ctx, "7")
	require.NoError(t, err)
	require.False(t, ok, "empty mirror must report no snapshot, not an error")

	stored := []rbac.Grant{
		grant(rbac.ResourceOrder, rbac.ActionRead),
		grant(rbac.ResourceMenu, rbac.ActionUpdate),
	}
	require.NoError(t, mirror.Store(ctx, "7", stored))

	loaded, ok, err := mirror.Load(ctx, "7")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stored, loaded)

	// Snapshots are keyed per identity.
	_, ok, err = mirror.Load(ctx, "8")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mirror.Clear(ctx, "7"))
	_, ok, err = mirror.Load(ctx, "7")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisMirrorSnapshotExpires(t *testing.T) {
	mirror, mr := newRedisMirror(t)
	ctx := context.Background()

	require.NoError(t, mirror.Store(ctx, "7", []rbac.Grant{grant(rbac.ResourceOrder, rbac.ActionRead)}))
	mr.FastForward(2 * time.Minute)

	_, ok, err := mirror.Load(ctx, "7")
	require.NoError(t, err)
	assert.False(t, ok, "snapshot must lapse with its TTL")
}

func TestStoreWarmsFromRedisMirror(t *testing.T) {
	mirror, _ := newRedisMirror(t)
	ctx := context.Background()
	require.NoError(t, mirror.Store(ctx, "7", []rbac.Grant{grant(rbac.ResourceOrder, rbac.ActionRead)}))

	perms := gate.NewStore(&fakeGrants{}, mirror, nil)
	perms.SetIdentity(staffIdentity())
	perms.WarmFromMirror(ctx)

	assert.True(t, perms.Loading(), "mirrored grants do not settle the load")
	assert.Len(t, perms.Grants(), 1)
}
