package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// TokenProvider supplies the system bearer token for outbound calls.
type TokenProvider interface {
	SystemToken(ctx context.Context) (string, error)
}

// User is the projection of a directory user record this service consumes.
type User struct {
	ID             string `json:"_id"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	EmailConfirmed bool   `json:"email_confirmed"`
}

// CreateUserParams is the payload for creating a user.
type CreateUserParams struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// UpdateUserParams is a partial update; nil fields are left untouched.
type UpdateUserParams struct {
	Email          *string `json:"email,omitempty"`
	Password       *string `json:"password,omitempty"`
	EmailConfirmed *bool   `json:"email_confirmed,omitempty"`
}

// Client talks to the users api.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenProvider
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying http client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.http = httpClient
	}
}

// NewClient creates a users api client rooted at baseURL
// (e.g. "http://users-api/api/users").
func NewClient(baseURL string, tokens TokenProvider, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		tokens:  tokens,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetUser fetches a user by id. Returns ErrUserNotFound on 404.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	err := c.do(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(id), nil, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByEmail looks a user up by email. Returns ErrUserNotFound when no
// user matches.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	query := url.Values{}
	query.Set("email", email)
	query.Set("limit", "1")

	var result struct {
		QueryResults []User `json:"query_results"`
	}
	err := c.do(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil, &result)
	if err != nil {
		return nil, err
	}
	if len(result.QueryResults) == 0 {
		return nil, ErrUserNotFound
	}
	return &result.QueryResults[0], nil
}

// CreateUser creates a user record. A 4xx rejection is returned as a
// *ValidationError so callers can forward it verbatim.
func (c *Client) CreateUser(ctx context.Context, params CreateUserParams) (*User, error) {
	var result struct {
		NewUser User `json:"new_user"`
	}
	err := c.do(ctx, http.MethodPost, c.baseURL, params, &result)
	if err != nil {
		return nil, err
	}
	return &result.NewUser, nil
}

// UpdateUser applies a partial update to a user record.
func (c *Client) UpdateUser(ctx context.Context, id string, params UpdateUserParams) (*User, error) {
	var result struct {
		UpdatedUser User `json:"updated_user"`
	}
	err := c.do(ctx, http.MethodPatch, c.baseURL+"/"+url.PathEscape(id), params, &result)
	if err != nil {
		return nil, err
	}
	return &result.UpdatedUser, nil
}

func (c *Client) do(ctx context.Context, method, requestURL string, body, out interface{}) error {
	token, err := c.tokens.SystemToken(ctx)
	if err != nil {
		return fmt.Errorf("obtain system token: %w", err)
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("users api request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrUserNotFound
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		payload, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			slog.Error("Failed to read users api error body", "err", readErr, "status", resp.StatusCode)
		}
		return &ValidationError{Status: resp.StatusCode, Body: payload}
	case resp.StatusCode >= 500:
		return fmt.Errorf("users api returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode users api response: %w", err)
		}
	}
	return nil
}
