package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/gastropos/gastropos/internal/platform/httpx"
	"github.com/gastropos/gastropos/internal/rbac"
)

// Client implements AuthTransport and PermissionTransport over the platform
// HTTP API. Session affinity rides on the cookie jar; the CSRF token handed
// out by the session endpoint is replayed on every mutating request.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu   sync.Mutex
	csrf string
}

// NewClient constructs a Client for the given base URL. When httpClient is
// nil a cookie-jar client with a 15s timeout is created.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		httpClient = &http.Client{Jar: jar, Timeout: 15 * time.Second}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		httpClient.Jar = jar
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}, nil
}

type sessionResponse struct {
	Authenticated bool      `json:"authenticated"`
	User          *Identity `json:"user"`
	CSRF          string    `json:"csrf"`
}

type userResponse struct {
	User *Identity `json:"user"`
}

type refreshResponse struct {
	Refreshed bool `json:"refreshed"`
}

type grantsResponse struct {
	Role   rbac.Role    `json:"role"`
	Grants []rbac.Grant `json:"grants"`
}

// Login authenticates with email/password credentials.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Identity, error) {
	payload := map[string]string{"email": creds.Email, "password": creds.Password}
	var out userResponse
	if err := c.post(ctx, "/auth/login", payload, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, reg Registration) (*Identity, error) {
	payload := map[string]string{"email": reg.Email, "name": reg.Name, "password": reg.Password}
	var out userResponse
	if err := c.post(ctx, "/auth/register", payload, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Logout terminates the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	err := c.post(ctx, "/auth/logout", nil, nil)
	c.mu.Lock()
	c.csrf = ""
	c.mu.Unlock()
	return err
}

// IsAuthenticated reports whether the session cookie is still valid.
func (c *Client) IsAuthenticated(ctx context.Context) (bool, error) {
	sess, err := c.session(ctx)
	if err != nil {
		return false, err
	}
	return sess.Authenticated, nil
}

// CurrentUser returns the identity bound to the session, or nil.
func (c *Client) CurrentUser(ctx context.Context) (*Identity, error) {
	sess, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	return sess.User, nil
}

// RefreshToken slides the session lifetime forward.
func (c *Client) RefreshToken(ctx context.Context) (bool, error) {
	var out refreshResponse
	if err := c.post(ctx, "/auth/refresh", nil, &out); err != nil {
		return false, err
	}
	return out.Refreshed, nil
}

// UserGrants fetches the grant set for the session identity.
func (c *Client) UserGrants(ctx context.Context) ([]rbac.Grant, error) {
	var out grantsResponse
	if err := c.get(ctx, "/permissions", &out); err != nil {
		return nil, err
	}
	return out.Grants, nil
}

// SeedPermissions triggers server-side permission bootstrap.
func (c *Client) SeedPermissions(ctx context.Context) error {
	return c.post(ctx, "/permissions/seed", nil, nil)
}

func (c *Client) session(ctx context.Context) (*sessionResponse, error) {
	var out sessionResponse
	if err := c.get(ctx, "/auth/session", &out); err != nil {
		return nil, err
	}
	if out.CSRF != "" {
		c.mu.Lock()
		c.csrf = out.CSRF
		c.mu.Unlock()
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, dest)
}

func (c *Client) post(ctx context.Context, path string, payload, dest any) error {
	body := func() (io.Reader, error) {
		if payload == nil {
			return nil, nil
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(raw), nil
	}

	attempt := func() error {
		reader, err := body()
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("X-CSRF-Token", c.token(ctx))
		return c.do(req, dest)
	}

	err := attempt()
	if err != nil && errorStatus(err) == http.StatusForbidden {
		// Token likely rotated with the session; refresh it once and retry.
		c.mu.Lock()
		c.csrf = ""
		c.mu.Unlock()
		return attempt()
	}
	return err
}

// token returns the cached CSRF token, priming it from the session endpoint
// when missing.
func (c *Client) token(ctx context.Context) string {
	c.mu.Lock()
	cached := c.csrf
	c.mu.Unlock()
	if cached != "" {
		return cached
	}
	if _, err := c.session(ctx); err != nil {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.csrf
}

func (c *Client) do(req *http.Request, dest any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return decodeProblem(resp)
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// statusError pairs an HTTP status with the decoded problem detail.
type statusError struct {
	status int
	cause  error
}

func (e *statusError) Error() string { return e.cause.Error() }
func (e *statusError) Unwrap() error { return e.cause }

func errorStatus(err error) int {
	if se, ok := err.(*statusError); ok {
		return se.status
	}
	return 0
}

func decodeProblem(resp *http.Response) error {
	var problem httpx.ProblemDetail
	detail := ""
	if err := json.NewDecoder(resp.Body).Decode(&problem); err == nil {
		detail = problem.Detail
		if detail == "" {
			detail = problem.Title
		}
	}
	var sentinel error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		sentinel = httpx.ErrUnauthorized
	case http.StatusForbidden:
		sentinel = httpx.ErrForbidden
	case http.StatusNotFound:
		sentinel = httpx.ErrNotFound
	case http.StatusConflict:
		sentinel = httpx.ErrDuplicate
	default:
		sentinel = fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	cause := sentinel
	if detail != "" {
		cause = fmt.Errorf("%w: %s", sentinel, detail)
	}
	return &statusError{status: resp.StatusCode, cause: cause}
}
