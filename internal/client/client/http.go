package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/session"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type HTTPClient struct {
	base    *url.URL
	http    *http.Client
	session *session.Session
	group   singleflight.Group

	mu        sync.Mutex
	onRefresh func(token string)
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, s *session.Session, timeout time.Duration) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	c := &HTTPClient{base: base, session: s}
	c.http = &http.Client{
		Jar:       jar,
		Timeout:   timeout,
		Transport: &authTransport{base: http.DefaultTransport, client: c},
	}
	return c, nil
}

func (c *HTTPClient) OnTokenRefreshed(fn func(token string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRefresh = fn
}

func (c *HTTPClient) RefreshCookie() string {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == common.RefreshTokenCookieName {
			return ck.Value
		}
	}
	return ""
}

// RestoreRefreshCookie puts value into the jar. An empty value removes
// the cookie.
func (c *HTTPClient) RestoreRefreshCookie(value string) {
	ck := &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
	}
	if value == "" {
		ck.MaxAge = -1
	}
	c.http.Jar.SetCookies(c.base, []*http.Cookie{ck})
}

func (c *HTTPClient) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	u := &models.User{}
	if err := c.call(withoutAuth(ctx), http.MethodPost, "/api/users/register", req, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login starts a session: the access token goes to the session, the
// refresh cookie to the jar.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.User, error) {
	var out struct {
		AccessToken string      `json:"accessToken"`
		User        models.User `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.call(withoutAuth(ctx), http.MethodPost, "/api/users/login", body, &out); err != nil {
		return nil, err
	}

	if err := c.session.SetAccessToken(out.AccessToken); err != nil {
		return nil, fmt.Errorf("unexpected access token: %w", err)
	}
	c.session.SetUser(out.User)
	return &out.User, nil
}

// Logout ends the server session. The local session is cleared whatever
// the outcome; the error only reports whether the server agreed.
func (c *HTTPClient) Logout(ctx context.Context) error {
	defer c.session.Clear()

	err := c.call(withoutAuth(ctx), http.MethodDelete, "/api/users/logout", nil, nil)
	if errors.Is(err, ErrForbidden) || errors.Is(err, ErrInvalidInput) {
		// the server no longer knows this session
		c.RestoreRefreshCookie("")
		return nil
	}
	return err
}

// Refresh obtains a new access token with the refresh cookie. Concurrent
// callers share one request. A rejected cookie clears the session and
// yields ErrSessionExpired.
func (c *HTTPClient) Refresh(ctx context.Context) (string, error) {
	v, err, _ := c.group.Do(refreshKey, func() (any, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *HTTPClient) refresh(ctx context.Context) (string, error) {
	resp, err := c.send(withoutAuth(ctx), http.MethodPost, "/api/users/refresh", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.session.Clear()
		return "", ErrSessionExpired
	case resp.StatusCode != http.StatusOK:
		return "", readAPIError(resp)
	}

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	if err := c.session.SetAccessToken(out.AccessToken); err != nil {
		return "", fmt.Errorf("unexpected access token: %w", err)
	}

	c.mu.Lock()
	hook := c.onRefresh
	c.mu.Unlock()
	if hook != nil {
		hook(out.AccessToken)
	}
	return out.AccessToken, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.send(withoutAuth(ctx), http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return ErrUnavailable
	}
	return nil
}

func (c *HTTPClient) ListNotes(ctx context.Context, query string) ([]models.Note, error) {
	path := "/api/notes"
	if query != "" {
		path += "?" + url.Values{"q": {query}}.Encode()
	}

	notes := []models.Note{}
	if err := c.call(ctx, http.MethodGet, path, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *HTTPClient) CreateNote(ctx context.Context, title, content string) (*models.Note, error) {
	n := &models.Note{}
	body := map[string]string{"title": title, "content": content}
	if err := c.call(ctx, http.MethodPost, "/api/notes", body, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (c *HTTPClient) UpdateNote(ctx context.Context, id, title, content string) (*models.Note, error) {
	n := &models.Note{}
	body := map[string]string{"title": title, "content": content}
	if err := c.call(ctx, http.MethodPut, "/api/notes/"+url.PathEscape(id), body, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (c *HTTPClient) DeleteNote(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(id), nil, nil)
}

// call sends a request and decodes the envelope's data into out.
func (c *HTTPClient) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return readAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func (c *HTTPClient) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return nil, ErrSessionExpired
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func readAPIError(resp *http.Response) error {
	var env envelope
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&env)
	return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
}
