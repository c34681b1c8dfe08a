package users

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/gastropos/gastropos/internal/shared"
)

// ErrSelfDeactivation rejects an admin deactivating their own account.
var ErrSelfDeactivation = errors.New("users: cannot deactivate own account")

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	List(ctx context.Context, limit, offset int) ([]User, int, error)
	Get(ctx context.Context, id int64) (User, error)
	Insert(ctx context.Context, email, name, passwordHash, role string) (User, error)
	SetRole(ctx context.Context, id int64, role string) (User, error)
	SetActive(ctx context.Context, id int64, active bool) (User, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates user management operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) List(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	list, total, err := s.repo.List(ctx, perPage, shared.Offset(page, perPage))
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page, perPage, total), nil
}

func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create makes an account with an explicit role, for admin provisioning.
func (s *Service) Create(ctx context.Context, actorID int64, in CreateInput) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.Insert(ctx, strings.ToLower(strings.TrimSpace(in.Email)), strings.TrimSpace(in.Name), string(hash), in.Role)
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actorID, "users.create", user.ID)
	return user, nil
}

// AssignRole changes a user's role.
func (s *Service) AssignRole(ctx context.Context, actorID, id int64, in RoleInput) (User, error) {
	user, err := s.repo.SetRole(ctx, id, in.Role)
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actorID, "users.assign_role", id)
	return user, nil
}

// Deactivate disables an account. Admins cannot lock themselves out.
func (s *Service) Deactivate(ctx context.Context, actorID, id int64) (User, error) {
	if actorID == id {
		return User{}, ErrSelfDeactivation
	}
	user, err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actorID, "users.deactivate", id)
	return user, nil
}

// Activate re-enables an account.
func (s *Service) Activate(ctx context.Context, actorID, id int64) (User, error) {
	user, err := s.repo.SetActive(ctx, id, true)
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actorID, "users.activate", id)
	return user, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
	})
}
