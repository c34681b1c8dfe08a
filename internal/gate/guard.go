package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/gastropos/gastropos/internal/rbac"
)

// VerdictKind classifies a guard decision.
type VerdictKind int

// Guard decisions. A guard evaluation that cannot determine a verdict
// defaults to Pending, never to Allowed.
const (
	VerdictPending VerdictKind = iota
	VerdictRedirect
	VerdictDenied
	VerdictAllowed
)

func (k VerdictKind) String() string {
	switch k {
	case VerdictPending:
		return "pending"
	case VerdictRedirect:
		return "redirect"
	case VerdictDenied:
		return "denied"
	case VerdictAllowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// Verdict is the outcome of one guard evaluation. It is recomputed per
// navigation and never persisted.
type Verdict struct {
	Kind VerdictKind
	// RedirectTo is the login entry point for redirect verdicts.
	RedirectTo string
	// From preserves the originally requested path so the caller can return
	// the user there after login.
	From string
	// Reason names the denied resource/action or the pending cause.
	Reason string
	// CanRetry marks a pending verdict that has exceeded the settle timeout
	// and should offer a manual retry affordance.
	CanRetry bool
}

// Requirement is a protected view's declared access needs.
type Requirement struct {
	// Resource, when set, must be permitted for Action.
	Resource rbac.Resource
	// Action defaults to read when empty.
	Action rbac.Action
	// SuperAdminOnly restricts the view to the system admin role.
	SuperAdminOnly bool
	// FallbackPath overrides the guard's login path for this view.
	FallbackPath string
}

// DefaultLoginPath is where unauthenticated navigation is sent.
const DefaultLoginPath = "/login"

// Guard gates navigation to protected views by composing session and
// permission state into a verdict.
type Guard struct {
	controller *Controller
	perms      *Store
	loginPath  string
}

// NewGuard constructs a Guard. An empty loginPath selects the default.
func NewGuard(controller *Controller, perms *Store, loginPath string) *Guard {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return &Guard{controller: controller, perms: perms, loginPath: loginPath}
}

// Evaluate decides whether navigation to requested may proceed. It never
// panics and never returns Allowed while session or permission state is
// indeterminate.
func (g *Guard) Evaluate(requested string, req Requirement) Verdict {
	if g == nil || g.controller == nil {
		return Verdict{Kind: VerdictPending, Reason: "gate not initialized"}
	}
	sess := g.controller.Snapshot()
	if sess.Loading || (g.perms != nil && g.perms.Loading()) {
		return Verdict{Kind: VerdictPending, Reason: "resolving session"}
	}
	if !sess.Authenticated || sess.User == nil {
		return Verdict{Kind: VerdictRedirect, RedirectTo: g.redirectPath(req), From: requested}
	}
	if req.SuperAdminOnly && sess.User.Role != rbac.RoleSystemAdmin {
		return Verdict{Kind: VerdictDenied, Reason: "system administrator access required"}
	}
	if req.Resource != "" && !rbac.CapabilitiesFor(sess.User.Role).BypassAll {
		action := req.Action
		if action == "" {
			action = rbac.ActionRead
		}
		if g.perms == nil || !g.perms.HasPermission(req.Resource, action) {
			return Verdict{
				Kind:   VerdictDenied,
				Reason: fmt.Sprintf("access denied: %s %s", action, req.Resource),
			}
		}
	}
	return Verdict{Kind: VerdictAllowed}
}

func (g *Guard) redirectPath(req Requirement) string {
	if req.FallbackPath != "" {
		return req.FallbackPath
	}
	return g.loginPath
}

const (
	defaultRedirectGrace = 400 * time.Millisecond
	defaultSettleTimeout = 3 * time.Second
)

// StrictGuard is the top-level authenticated/unauthenticated gate. It
// performs no permission checks; it exists to avoid a loading-to-redirect
// flash and to surface a manual retry when resolution stalls.
type StrictGuard struct {
	controller    *Controller
	loginPath     string
	redirectGrace time.Duration
	settleTimeout time.Duration
}

// NewStrictGuard constructs a StrictGuard. Zero durations select defaults.
func NewStrictGuard(controller *Controller, loginPath string, redirectGrace, settleTimeout time.Duration) *StrictGuard {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	if redirectGrace <= 0 {
		redirectGrace = defaultRedirectGrace
	}
	if settleTimeout <= 0 {
		settleTimeout = defaultSettleTimeout
	}
	return &StrictGuard{
		controller:    controller,
		loginPath:     loginPath,
		redirectGrace: redirectGrace,
		settleTimeout: settleTimeout,
	}
}

// Resolve waits for the session to settle, then commits to Allowed or
// Redirect. If resolution exceeds the settle timeout the verdict stays
// Pending with the retry affordance set.
func (sg *StrictGuard) Resolve(ctx context.Context, requested string) Verdict {
	settleCtx, cancel := context.WithTimeout(ctx, sg.settleTimeout)
	defer cancel()
	if err := sg.controller.WaitSettled(settleCtx); err != nil {
		return Verdict{Kind: VerdictPending, Reason: "authentication check timed out", CanRetry: true}
	}
	if sg.controller.Snapshot().Authenticated {
		return Verdict{Kind: VerdictAllowed}
	}
	// Hold the pending state briefly before committing to the redirect; a
	// check resolving in this window keeps the user in place.
	timer := time.NewTimer(sg.redirectGrace)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Verdict{Kind: VerdictPending, Reason: "navigation cancelled"}
	case <-timer.C:
	}
	if sg.controller.Snapshot().Authenticated {
		return Verdict{Kind: VerdictAllowed}
	}
	return Verdict{Kind: VerdictRedirect, RedirectTo: sg.loginPath, From: requested}
}

// Retry forces an immediate re-check after a timed-out resolution.
func (sg *StrictGuard) Retry(ctx context.Context) Result {
	return sg.controller.CheckNow(ctx)
}
