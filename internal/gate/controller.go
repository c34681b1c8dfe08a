package gate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultDebounce        = 300 * time.Millisecond
	defaultRefreshInterval = 14 * time.Minute
	checkTimeout           = 10 * time.Second

	checkFlightKey = "auth-check"
)

// ErrClosed is returned by operations on a controller after Close.
var ErrClosed = errors.New("gate: controller closed")

// Options tune a Controller. Zero values select defaults.
type Options struct {
	// Permissions, when set, is rebound on identity change and cleared on
	// logout. The controller is its only writer pathway.
	Permissions *Store
	Logger      *slog.Logger
	Trail       *Trail
	// Debounce delays coalesced auth checks. CheckNow bypasses it.
	Debounce time.Duration
	// RefreshInterval paces silent token refresh while authenticated.
	RefreshInterval time.Duration
}

// Controller owns the client session: it establishes and re-validates the
// server-side session, schedules token refresh, and exposes the login,
// logout, and register flows. All mutation of session state goes through it.
type Controller struct {
	transport    AuthTransport
	perms        *Store
	logger       *slog.Logger
	trail        *Trail
	debounce     time.Duration
	refreshEvery time.Duration

	flight singleflight.Group

	mu            sync.Mutex
	state         State
	user          *Identity
	lastErr       error
	generation    uint64
	closed        bool
	baseCtx       context.Context
	baseCancel    context.CancelFunc
	refreshCancel context.CancelFunc

	settleOnce sync.Once
	settled    chan struct{}
}

// NewController constructs a Controller around the given transport.
func NewController(transport AuthTransport, opts Options) *Controller {
	c := &Controller{
		transport:    transport,
		perms:        opts.Permissions,
		logger:       opts.Logger,
		trail:        opts.Trail,
		debounce:     opts.Debounce,
		refreshEvery: opts.RefreshInterval,
		state:        StateUninitialized,
		settled:      make(chan struct{}),
	}
	if c.debounce <= 0 {
		c.debounce = defaultDebounce
	}
	if c.refreshEvery <= 0 {
		c.refreshEvery = defaultRefreshInterval
	}
	if c.trail == nil {
		c.trail = NewTrail(0)
	}
	return c
}

// Start binds the controller lifetime to ctx and runs the initial auth
// check immediately, without debounce.
func (c *Controller) Start(ctx context.Context) Result {
	c.mu.Lock()
	if c.baseCancel == nil {
		base, cancel := context.WithCancel(ctx)
		c.baseCtx, c.baseCancel = base, cancel
	}
	c.mu.Unlock()
	return c.CheckNow(ctx)
}

// Check re-validates the session after the debounce window. Concurrent
// callers collapse into a single underlying identity fetch; a caller joining
// an in-flight check observes that check's result rather than a fresh one.
func (c *Controller) Check(ctx context.Context) Result {
	return c.check(ctx, false)
}

// CheckNow re-validates the session without the debounce delay. It still
// joins any check already in flight.
func (c *Controller) CheckNow(ctx context.Context) Result {
	return c.check(ctx, true)
}

func (c *Controller) check(ctx context.Context, immediate bool) Result {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return Result{Err: ErrClosed}
	}
	if !immediate {
		timer := time.NewTimer(c.debounce)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return Result{Err: ctx.Err()}
		}
	}
	ch := c.flight.DoChan(checkFlightKey, func() (any, error) {
		return c.runCheck(), nil
	})
	select {
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	case res := <-ch:
		out, _ := res.Val.(Result)
		return out
	}
}

// runCheck performs one identity fetch against the transport. Any transport
// error, or an empty identity, resolves uniformly to unauthenticated.
func (c *Controller) runCheck() Result {
	gen := c.beginCheck()
	ctx, cancel := context.WithTimeout(c.base(), checkTimeout)
	defer cancel()

	ok, err := c.transport.IsAuthenticated(ctx)
	var user *Identity
	if err == nil && ok {
		user, err = c.transport.CurrentUser(ctx)
	}
	if err != nil || user == nil {
		c.commitUnauthenticated(gen, err)
		return Result{Success: false, Err: err}
	}
	c.commitAuthenticated(gen, user)
	return Result{Success: true, User: user}
}

// Login exchanges credentials for an authenticated session. Failures are
// returned as a structured result, never propagated.
func (c *Controller) Login(ctx context.Context, creds Credentials) Result {
	user, err := c.transport.Login(ctx, creds)
	if err != nil || user == nil {
		c.mu.Lock()
		c.lastErr = err
		if c.state == StateUninitialized {
			c.state = StateUnauthenticated
		}
		c.mu.Unlock()
		c.markSettled()
		c.trail.Add("auth.login", "login failed")
		return Result{Success: false, Err: err}
	}
	c.mu.Lock()
	c.generation++ // in-flight check results are now stale
	gen := c.generation
	c.mu.Unlock()
	c.commitAuthenticated(gen, user)
	c.trail.Add("auth.login", "logged in as "+user.Email)
	return Result{Success: true, User: user}
}

// Register creates a new account. Unlike Login and Logout it surfaces
// failure as a returned error; callers of the admin signup flow depend on
// that shape, so it is preserved rather than normalized to a Result.
func (c *Controller) Register(ctx context.Context, reg Registration) (*Identity, error) {
	user, err := c.transport.Register(ctx, reg)
	if err != nil {
		c.trail.Add("auth.register", "registration failed")
		return nil, err
	}
	c.trail.Add("auth.register", "registered "+user.Email)
	return user, nil
}

// Logout terminates the session. Local state, diagnostics, and the
// permission cache are cleared even when the server-side call fails.
func (c *Controller) Logout(ctx context.Context) Result {
	c.mu.Lock()
	c.state = StateLoggingOut
	c.generation++ // in-flight check results are now stale
	c.mu.Unlock()
	c.disarmRefresh()

	if err := c.transport.Logout(ctx); err != nil && c.logger != nil {
		c.logger.Warn("server logout", slog.Any("error", err))
	}
	c.trail.Clear()

	c.mu.Lock()
	c.state = StateUnauthenticated
	c.user = nil
	c.lastErr = nil
	c.mu.Unlock()
	if c.perms != nil {
		c.perms.ClearIdentity()
	}
	c.markSettled()
	return Result{Success: true}
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Session{
		State:         c.state,
		User:          c.user,
		Authenticated: c.state == StateAuthenticated,
		Loading:       c.state == StateUninitialized || c.state == StateChecking,
		LastErr:       c.lastErr,
	}
}

// Settled is closed once the first check, login, or logout has resolved.
func (c *Controller) Settled() <-chan struct{} {
	return c.settled
}

// WaitSettled blocks until the session state is determinate or ctx ends.
func (c *Controller) WaitSettled(ctx context.Context) error {
	select {
	case <-c.settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Breadcrumbs exposes the diagnostic trail.
func (c *Controller) Breadcrumbs() *Trail {
	return c.trail
}

// Close disarms the refresh loop and invalidates in-flight checks. The
// controller must not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.generation++
	cancel := c.baseCancel
	c.mu.Unlock()
	c.disarmRefresh()
	if cancel != nil {
		cancel()
	}
}

func (c *Controller) beginCheck() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateLoggingOut {
		c.state = StateChecking
	}
	return c.generation
}

func (c *Controller) commitAuthenticated(gen uint64, user *Identity) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	prev := c.user
	c.state = StateAuthenticated
	c.user = user
	c.lastErr = nil
	c.mu.Unlock()

	c.markSettled()
	c.armRefresh()
	if c.perms != nil && (prev == nil || prev.ID != user.ID) {
		c.perms.SetIdentity(user)
		go c.perms.Load(c.base())
	}
	c.trail.Add("auth.check", "authenticated as "+user.Email)
}

func (c *Controller) commitUnauthenticated(gen uint64, cause error) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.state = StateUnauthenticated
	c.user = nil
	c.lastErr = cause
	c.mu.Unlock()

	c.markSettled()
	c.disarmRefresh()
	if c.perms != nil {
		c.perms.ClearIdentity()
	}
	if cause != nil {
		c.trail.Add("auth.check", "check failed: "+cause.Error())
	} else {
		c.trail.Add("auth.check", "not authenticated")
	}
}

func (c *Controller) armRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshCancel != nil || c.closed {
		return
	}
	base := c.baseCtx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)
	c.refreshCancel = cancel
	go c.refreshLoop(ctx)
}

func (c *Controller) disarmRefresh() {
	c.mu.Lock()
	cancel := c.refreshCancel
	c.refreshCancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Controller) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(c.refreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refreshOnce(ctx)
		}
	}
}

// refreshOnce silently extends the session. A failed refresh forces an
// immediate recheck instead of dropping the session, so a transient outage
// does not log the operator out.
func (c *Controller) refreshOnce(ctx context.Context) {
	c.mu.Lock()
	authed := c.state == StateAuthenticated
	c.mu.Unlock()
	if !authed {
		return
	}
	ok, err := c.transport.RefreshToken(ctx)
	if err != nil || !ok {
		if c.logger != nil {
			c.logger.Warn("token refresh failed", slog.Any("error", err))
		}
		c.trail.Add("auth.refresh", "refresh failed, rechecking")
		_ = c.check(ctx, true)
		return
	}
	c.trail.Add("auth.refresh", "token refreshed")
}

func (c *Controller) markSettled() {
	c.settleOnce.Do(func() { close(c.settled) })
}

func (c *Controller) base() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.baseCtx != nil {
		return c.baseCtx
	}
	return context.Background()
}
