package audit_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/gastropos/gastropos/internal/audit"
	"github.com/gastropos/gastropos/internal/rbac"
	"github.com/gastropos/gastropos/internal/shared"
	_ "github.com/gastropos/gastropos/testing"
)

type fakeAuthorizer struct {
	roles map[int64]rbac.Role
}

func (f *fakeAuthorizer) RoleOf(ctx context.Context, userID int64) (rbac.Role, error) {
	role, ok := f.roles[userID]
	if !ok {
		return "", rbac.ErrNotFound
	}
	return role, nil
}

func (f *fakeAuthorizer) Allowed(ctx context.Context, userID int64, resource rbac.Resource, action rbac.Action) (bool, error) {
	return false, nil
}

func serveTimeline(t *testing.T, userID, target string) *httptest.ResponseRecorder {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := rbac.Middleware{Service: &fakeAuthorizer{roles: map[int64]rbac.Role{
		1: rbac.RoleSystemAdmin,
		2: rbac.RoleManager,
	}}}
	handler := audit.NewHandler(logger, audit.NewService(nil), mw)

	router := chi.NewRouter()
	router.Route("/audit", handler.MountRoutes)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if userID != "" {
		sess.SetUser(userID)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestTimelineRequiresSuperAdmin(t *testing.T) {
	if res := serveTimeline(t, "", "/audit/"); res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous, got %d", res.Code)
	}
	if res := serveTimeline(t, "2", "/audit/"); res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager, got %d", res.Code)
	}
}

func TestTimelineRejectsMalformedSince(t *testing.T) {
	res := serveTimeline(t, "1", "/audit/?since=yesterday")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
