package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrNoSession is returned by calls that need a signed-in user when the
// client holds no token.
var ErrNoSession = errors.New("client has no session token; call Login or use WithBearerToken")

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Code       string // e.g. "not_found", "conflict"; empty for non-domain errors
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("skillswap: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("skillswap: HTTP %d: %s", e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an
// *APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Client is the SkillSwap SDK entry point.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *profileCache

	// session state, guarded by mu
	mu          sync.Mutex
	bearerToken string
	tokenExpiry time.Time
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("nil http.Client")
		}
		c.httpClient = hc
		return nil
	}
}

// WithBearerToken attaches a previously issued session token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		c.tokenExpiry = time.Time{}
		return nil
	}
}

// WithCacheTTL caches GetUser results for ttl. Entries are dropped when the
// client updates that profile or rates that user.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) error {
		if ttl <= 0 {
			return fmt.Errorf("cache ttl must be positive, got %s", ttl)
		}
		c.cache = newProfileCache(ttl)
		return nil
	}
}

// New creates a Client for the API served at baseURL, e.g. "http://localhost:8080".
//
//	c, err := client.New("https://skillswap.example.com",
//	    client.WithCacheTTL(30*time.Second),
//	)
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Token returns the current session token, or "" when signed out.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bearerToken
}

// TokenExpiry returns when the token obtained by Login expires. It is zero
// for tokens supplied through WithBearerToken.
func (c *Client) TokenExpiry() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokenExpiry
}

// ── Auth ─────────────────────────────────────────────────────────────────────

// Signup registers a new account. It does not sign in.
func (c *Client) Signup(ctx context.Context, email, password, name string) (*SignupResult, error) {
	var out SignupResult
	err := c.call(ctx, http.MethodPost, "/api/auth/register", nil, map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates with email and password and keeps the session token
// for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var out struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expiresIn"`
		User      User   `json:"user"`
	}
	err := c.call(ctx, http.MethodPost, "/api/auth/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.bearerToken = out.Token
	c.tokenExpiry = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	c.mu.Unlock()
	return &out.User, nil
}

// Logout forgets the session token. Sessions are stateless, so the server
// call only acknowledges the request.
func (c *Client) Logout(ctx context.Context) error {
	err := c.call(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)

	c.mu.Lock()
	c.bearerToken = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
	return err
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var u User
	if err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ── Users ────────────────────────────────────────────────────────────────────

// ListUsers returns one page of the public directory. Zero page or limit
// fall back to the server defaults.
func (c *Client) ListUsers(ctx context.Context, search string, page, limit int) (*DirectoryPage, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out DirectoryPage
	if err := c.call(ctx, http.MethodGet, "/api/users", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser fetches a profile. Private profiles are only returned to their owner.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	if c.cache != nil {
		if u, ok := c.cache.get(id); ok {
			return u, nil
		}
	}
	var u User
	if err := c.call(ctx, http.MethodGet, "/api/users/"+url.PathEscape(id), nil, nil, &u); err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.set(id, &u)
	}
	return &u, nil
}

// UpdateProfile edits the signed-in user's profile. Nil fields are unchanged.
func (c *Client) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var u User
	if err := c.call(ctx, http.MethodPut, "/api/users/"+url.PathEscape(id), nil, upd, &u); err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.invalidate(id)
	}
	return &u, nil
}

// ListRatings returns the ratings a user received, newest first.
func (c *Client) ListRatings(ctx context.Context, userID string) ([]Rating, error) {
	var out struct {
		Ratings []Rating `json:"ratings"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/ratings", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Ratings, nil
}

// ── Swaps ────────────────────────────────────────────────────────────────────

// CreateSwap asks receiver for skillRequested in exchange for skillOffered.
func (c *Client) CreateSwap(ctx context.Context, req CreateSwapRequest) (*Swap, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var s Swap
	if err := c.call(ctx, http.MethodPost, "/api/swaps", nil, req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSwaps returns the signed-in user's swaps. filter is "sent", "received"
// or "" for both.
func (c *Client) ListSwaps(ctx context.Context, filter string) ([]Swap, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	q := url.Values{}
	if filter != "" {
		q.Set("type", filter)
	}
	var out []Swap
	if err := c.call(ctx, http.MethodGet, "/api/swaps", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSwap fetches a swap the signed-in user participates in.
func (c *Client) GetSwap(ctx context.Context, id string) (*Swap, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var s Swap
	if err := c.call(ctx, http.MethodGet, "/api/swaps/"+url.PathEscape(id), nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Accept moves a pending swap to accepted. Only the receiver may accept.
func (c *Client) Accept(ctx context.Context, id string) (*Swap, error) {
	return c.transition(ctx, id, StatusAccepted)
}

// Reject moves a pending swap to rejected. Only the receiver may reject.
func (c *Client) Reject(ctx context.Context, id string) (*Swap, error) {
	return c.transition(ctx, id, StatusRejected)
}

// Complete moves an accepted swap to completed. Either participant may complete.
func (c *Client) Complete(ctx context.Context, id string) (*Swap, error) {
	return c.transition(ctx, id, StatusCompleted)
}

func (c *Client) transition(ctx context.Context, id, status string) (*Swap, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var s Swap
	err := c.call(ctx, http.MethodPut, "/api/swaps/"+url.PathEscape(id), nil,
		map[string]string{"status": status}, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSwap withdraws a pending swap. Only the requester may delete.
func (c *Client) DeleteSwap(ctx context.Context, id string) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	return c.call(ctx, http.MethodDelete, "/api/swaps/"+url.PathEscape(id), nil, nil, nil)
}

// ── Ratings ──────────────────────────────────────────────────────────────────

// Rate scores the other participant of a completed swap and returns the
// ratee's new aggregate.
func (c *Client) Rate(ctx context.Context, req RateRequest) (*Rating, Aggregate, error) {
	if err := c.requireSession(); err != nil {
		return nil, Aggregate{}, err
	}
	var out struct {
		Rating    Rating    `json:"rating"`
		Aggregate Aggregate `json:"aggregate"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/ratings", nil, req, &out); err != nil {
		return nil, Aggregate{}, err
	}
	if c.cache != nil {
		c.cache.invalidate(req.Ratee)
	}
	return &out.Rating, out.Aggregate, nil
}

// ── Transport ────────────────────────────────────────────────────────────────

func (c *Client) requireSession() error {
	if c.Token() == "" {
		return ErrNoSession
	}
	return nil
}

// call sends a JSON request and decodes a JSON response into out (which may
// be nil). Non-2xx responses become *APIError.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	respBody, err := c.do(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// do executes an HTTP request, attaching the bearer token if present.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Code = payload.Code
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return nil, apiErr
	}
	return body, nil
}

// --- simple in-memory profile cache ---

type cacheEntry struct {
	user      *User
	expiresAt time.Time
}

type profileCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

func newProfileCache(ttl time.Duration) *profileCache {
	return &profileCache{entries: make(map[string]*cacheEntry), ttl: ttl}
}

func (pc *profileCache) get(key string) (*User, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	e, ok := pc.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	u := *e.user
	return &u, true
}

func (pc *profileCache) set(key string, u *User) {
	cp := *u
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.entries[key] = &cacheEntry{user: &cp, expiresAt: time.Now().Add(pc.ttl)}
}

func (pc *profileCache) invalidate(key string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	delete(pc.entries, key)
}
