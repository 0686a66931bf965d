// Package authclient talks to the hosted auth service. Tokens are opaque to
// this codebase: the service mints them, we carry them in cookies and hand
// them back for identity lookups.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailTaken         = errors.New("email already registered")
)

// TokenPair is the session material the service issues on login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

// User is the identity decoded from an access token by the service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Service is what the handlers need from the auth backend.
type Service interface {
	PasswordGrant(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	UserFromToken(ctx context.Context, accessToken string) (*User, error)
	SignUp(ctx context.Context, email, password string) (*User, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Client implements Service over the auth service's REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type credentials struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Refresh  string `json:"refresh_token,omitempty"`
}

// upstreamError is the service's error body. Some deployments use "error",
// some "msg"; take whichever is set.
type upstreamError struct {
	Error   string `json:"error"`
	Message string `json:"msg"`
}

func (e upstreamError) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

func (c *Client) PasswordGrant(ctx context.Context, email, password string) (*TokenPair, error) {
	var pair TokenPair
	err := c.post(ctx, "/token?grant_type=password", credentials{Email: email, Password: password}, "", &pair)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && (se.code == http.StatusBadRequest || se.code == http.StatusUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return &pair, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair TokenPair
	err := c.post(ctx, "/token?grant_type=refresh_token", credentials{Refresh: refreshToken}, "", &pair)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && (se.code == http.StatusBadRequest || se.code == http.StatusUnauthorized) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return &pair, nil
}

func (c *Client) UserFromToken(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user", nil)
	if err != nil {
		return nil, err
	}
	c.decorate(req, accessToken)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return nil, ErrInvalidToken
	}
	if res.StatusCode != http.StatusOK {
		return nil, readStatusError(res)
	}

	var user User
	if err := json.NewDecoder(res.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("auth service: decode user: %w", err)
	}
	return &user, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*User, error) {
	var user User
	err := c.post(ctx, "/signup", credentials{Email: email, Password: password}, "", &user)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			if se.code == http.StatusConflict || strings.Contains(se.message, "already registered") {
				return nil, ErrEmailTaken
			}
		}
		return nil, err
	}
	return &user, nil
}

// SignOut revokes the session server-side. Best effort: an already-dead token
// is not an error, the cookies get cleared either way.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	err := c.post(ctx, "/logout", nil, accessToken, nil)
	var se *statusError
	if errors.As(err, &se) && (se.code == http.StatusUnauthorized || se.code == http.StatusNotFound) {
		return nil
	}
	return err
}

func (c *Client) post(ctx context.Context, path string, body any, token string, out any) error {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req, token)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return readStatusError(res)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (c *Client) decorate(req *http.Request, token string) {
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// statusError carries the upstream HTTP status and message for callers that
// need to branch on it.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("auth service: %s (status %d)", e.message, e.code)
	}
	return fmt.Sprintf("auth service: status %d", e.code)
}

// Message is the upstream error text, usable as user-facing detail.
func (e *statusError) Message() string { return e.message }

func readStatusError(res *http.Response) error {
	var body upstreamError
	_ = json.NewDecoder(res.Body).Decode(&body)
	return &statusError{code: res.StatusCode, message: body.text()}
}

// UpstreamMessage extracts the service's own error text from err, if any.
func UpstreamMessage(err error) string {
	var se *statusError
	if errors.As(err, &se) {
		return se.Message()
	}
	return ""
}
