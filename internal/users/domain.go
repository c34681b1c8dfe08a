package users

import (
	"time"

	"github.com/gastropos/gastropos/internal/rbac"
)

// User is an account row as managed from the admin console.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      rbac.Role `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput carries fields for an admin-created account.
type CreateInput struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=system_admin restaurant_admin manager staff"`
}

// RoleInput changes a user's role.
type RoleInput struct {
	Role string `json:"role" validate:"required,oneof=system_admin restaurant_admin manager staff"`
}
