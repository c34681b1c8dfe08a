package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/gastropos/gastropos/internal/auth"
	"github.com/gastropos/gastropos/internal/rbac"
	"github.com/gastropos/gastropos/internal/shared"
	_ "github.com/gastropos/gastropos/testing"
)

type stubRepo struct {
	user    *auth.User
	created *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) Create(ctx context.Context, email, name, passwordHash, role string) (*auth.User, error) {
	if s.user != nil && s.user.Email == email {
		return nil, shared.ErrEmailTaken
	}
	s.created = &auth.User{ID: 42, Email: email, Name: name, PasswordHash: passwordHash, Role: rbac.ParseRole(role), IsActive: true}
	return s.created, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(slogDiscard(), auth.NewService(repo), sessionManager, csrfManager)
	return handler, sessionManager
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mountAndServe(handler *auth.Handler, w http.ResponseWriter, r *http.Request) {
	router := chi.NewRouter()
	router.Route("/auth", handler.MountRoutes)
	router.ServeHTTP(w, r)
}

func withSession(t *testing.T, sm *shared.SessionManager, req *http.Request) (*http.Request, *shared.Session) {
	t.Helper()
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func hashedUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{
		ID:           1,
		Email:        "user@test.local",
		Name:         "Test User",
		PasswordHash: string(hashed),
		Role:         rbac.RoleManager,
		IsActive:     true,
	}
}

func TestLoginSuccessBindsSessionUser(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{user: hashedUser(t, "correctpass")})

	body := `{"email":"user@test.local","password":"correctpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req, sess := withSession(t, sm, req)

	res := httptest.NewRecorder()
	mountAndServe(handler, res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if !strings.Contains(res.Body.String(), `"email":"user@test.local"`) {
		t.Fatalf("expected user profile in body, got %s", res.Body.String())
	}
	if sess.User() != "1" {
		t.Fatalf("expected session user 1, got %q", sess.User())
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{user: hashedUser(t, "correctpass")})

	body := `{"email":"user@test.local","password":"wrongpass1"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req, sess := withSession(t, sm, req)

	res := httptest.NewRecorder()
	mountAndServe(handler, res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if sess.User() != "" {
		t.Fatalf("session must not bind a user on failed login")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{user: hashedUser(t, "correctpass")})

	body := `{"email":"user@test.local","name":"Another","password":"secretpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req, _ = withSession(t, sm, req)

	res := httptest.NewRecorder()
	mountAndServe(handler, res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}

func TestRegisterAssignsStaffRole(t *testing.T) {
	repo := &stubRepo{}
	handler, sm := newAuthHandler(t, repo)

	body := `{"email":"new@test.local","name":"New User","password":"secretpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req, _ = withSession(t, sm, req)

	res := httptest.NewRecorder()
	mountAndServe(handler, res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if repo.created == nil || repo.created.Role != rbac.RoleStaff {
		t.Fatalf("registration must create a staff account, got %+v", repo.created)
	}
}

func TestSessionEndpointReportsAuthenticatedUser(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{user: hashedUser(t, "correctpass")})

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req, sess := withSession(t, sm, req)
	sess.SetUser("1")

	res := httptest.NewRecorder()
	mountAndServe(handler, res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := res.Body.String()
	if !strings.Contains(body, `"authenticated":true`) {
		t.Fatalf("expected authenticated session, got %s", body)
	}
	if !strings.Contains(body, `"csrf":"`) {
		t.Fatalf("expected csrf token in session payload, got %s", body)
	}
}

func TestSessionEndpointAnonymous(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req, _ = withSession(t, sm, req)

	res := httptest.NewRecorder()
	mountAndServe(handler, res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `"authenticated":false`) {
		t.Fatalf("expected anonymous session, got %s", res.Body.String())
	}
}

func TestRefreshRequiresBoundUser(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{user: hashedUser(t, "correctpass")})

	anon := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	anon, _ = withSession(t, sm, anon)
	res := httptest.NewRecorder()
	mountAndServe(handler, res, anon)
	if !strings.Contains(res.Body.String(), `"refreshed":false`) {
		t.Fatalf("anonymous refresh must report false, got %s", res.Body.String())
	}

	bound := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	bound, sess := withSession(t, sm, bound)
	sess.SetUser("1")
	res = httptest.NewRecorder()
	mountAndServe(handler, res, bound)
	if !strings.Contains(res.Body.String(), `"refreshed":true`) {
		t.Fatalf("bound refresh must report true, got %s", res.Body.String())
	}
}
