// Package gate implements the client-side access layer for the Gastropos
// admin console: session bootstrap and re-validation, token refresh,
// permission caching, and route guarding. It consumes the platform's
// identity and permission services through the transport interfaces below
// and never parses or stores raw credentials itself.
package gate

import (
	"context"

	"github.com/gastropos/gastropos/internal/rbac"
)

// Credentials carries a login attempt.
type Credentials struct {
	Email    string
	Password string
}

// Registration carries a signup request.
type Registration struct {
	Email    string
	Name     string
	Password string
}

// AuthTransport is the identity service as consumed by the gate. Transport
// detail (cookies vs. bearer tokens) is owned entirely by implementations.
type AuthTransport interface {
	// Login exchanges credentials for an identity.
	Login(ctx context.Context, creds Credentials) (*Identity, error)
	// Register creates an account and returns the new identity.
	Register(ctx context.Context, reg Registration) (*Identity, error)
	// Logout terminates the server-side session. Best effort.
	Logout(ctx context.Context) error
	// IsAuthenticated reports whether the current session is valid.
	IsAuthenticated(ctx context.Context) (bool, error)
	// CurrentUser fetches the identity bound to the current session, or nil.
	CurrentUser(ctx context.Context) (*Identity, error)
	// RefreshToken extends the session lifetime, reporting success.
	RefreshToken(ctx context.Context) (bool, error)
}

// PermissionTransport fetches the grant set for the current identity.
type PermissionTransport interface {
	// UserGrants returns the full grant set for the session identity.
	UserGrants(ctx context.Context) ([]rbac.Grant, error)
	// SeedPermissions triggers administrative permission bootstrap. Not part
	// of steady-state flow.
	SeedPermissions(ctx context.Context) error
}
