package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gastropos/gastropos/internal/rbac"
	"github.com/gastropos/gastropos/internal/shared"
)

type memoryRepo struct {
	users  map[int64]User
	hashes map[int64]string
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]User), hashes: make(map[int64]string)}
}

func (r *memoryRepo) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	var list []User
	for _, u := range r.users {
		list = append(list, u)
	}
	return list, len(list), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (r *memoryRepo) Insert(ctx context.Context, email, name, passwordHash, role string) (User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return User{}, shared.ErrEmailTaken
		}
	}
	r.nextID++
	u := User{ID: r.nextID, Email: email, Name: name, Role: rbac.ParseRole(role), IsActive: true}
	r.users[u.ID] = u
	r.hashes[u.ID] = passwordHash
	return u, nil
}

func (r *memoryRepo) SetRole(ctx context.Context, id int64, role string) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	u.Role = rbac.ParseRole(role)
	r.users[id] = u
	return u, nil
}

func (r *memoryRepo) SetActive(ctx context.Context, id int64, active bool) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	u.IsActive = active
	r.users[id] = u
	return u, nil
}

func TestCreateNormalizesEmailAndHashesPassword(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	service := NewService(repo, nil)
	user, err := service.Create(ctx, 1, CreateInput{
		Email:    "  Owner@Example.COM ",
		Name:     "Owner",
		Password: "s3cret-pass",
		Role:     "restaurant_admin",
	})
	require.NoError(t, err)
	require.Equal(t, "owner@example.com", user.Email)
	require.Equal(t, rbac.RoleRestaurantAdmin, user.Role)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[user.ID]), []byte("s3cret-pass")))
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	service := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := service.Create(ctx, 1, CreateInput{Email: "a@b.co", Name: "A", Password: "password1", Role: "staff"})
	require.NoError(t, err)
	_, err = service.Create(ctx, 1, CreateInput{Email: "a@b.co", Name: "B", Password: "password2", Role: "staff"})
	require.ErrorIs(t, err, shared.ErrEmailTaken)
}

func TestDeactivateBlocksSelf(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil)
	ctx := context.Background()

	admin, err := service.Create(ctx, 0, CreateInput{Email: "admin@b.co", Name: "Admin", Password: "password1", Role: "system_admin"})
	require.NoError(t, err)
	other, err := service.Create(ctx, 0, CreateInput{Email: "staff@b.co", Name: "Staff", Password: "password1", Role: "staff"})
	require.NoError(t, err)

	_, err = service.Deactivate(ctx, admin.ID, admin.ID)
	require.ErrorIs(t, err, ErrSelfDeactivation)

	got, err := service.Deactivate(ctx, admin.ID, other.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	got, err = service.Activate(ctx, admin.ID, other.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)
}
