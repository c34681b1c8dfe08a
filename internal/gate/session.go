package gate

import "github.com/gastropos/gastropos/internal/rbac"

// Identity is the authenticated user as seen by the client.
type Identity struct {
	ID    int64     `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  rbac.Role `json:"role"`
}

// State enumerates the controller lifecycle.
type State int

// Controller states.
const (
	StateUninitialized State = iota
	StateChecking
	StateAuthenticated
	StateUnauthenticated
	StateLoggingOut
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateLoggingOut:
		return "logging_out"
	default:
		return "unknown"
	}
}

// Session is an immutable snapshot of the controller state. Authenticated
// implies User is non-nil and was fetched within the current check cycle.
type Session struct {
	State         State
	User          *Identity
	Authenticated bool
	Loading       bool
	LastErr       error
}

// Result is the structured outcome of login, logout, and check operations.
// These operations never panic and never propagate transport exceptions;
// Err carries the failure reason for diagnostics only.
type Result struct {
	Success bool
	User    *Identity
	Err     error
}
