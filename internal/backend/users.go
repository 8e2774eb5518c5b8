package backend

import (
	"context"
	"net/http"
)

// User is an account as the backend represents it.
type User struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedBy string `json:"createdBy,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Credentials authenticates a login request.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration creates a new account.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// UserUpdate carries the writable account fields.
type UserUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// LoginResult is the backend's answer to a successful login: the bearer token
// for subsequent calls plus the account it belongs to.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	var result LoginResult
	err := c.do(ctx, http.MethodPost, "/users/login", "", nil, creds, &result)
	return result, err
}

// Register creates a new account. The backend signs the new account in
// immediately, answering with the same token envelope as login.
func (c *Client) Register(ctx context.Context, reg Registration) (LoginResult, error) {
	var result LoginResult
	err := c.do(ctx, http.MethodPost, "/users/register", "", nil, reg, &result)
	return result, err
}

// CurrentUser returns the account the token belongs to.
func (c *Client) CurrentUser(ctx context.Context, token string) (User, error) {
	var u User
	err := c.do(ctx, http.MethodGet, "/users/me", token, nil, nil, &u)
	return u, err
}

// ListUsers returns all accounts.
func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	var users []User
	err := c.do(ctx, http.MethodGet, "/users", token, nil, nil, &users)
	return users, err
}

// UserCount returns the number of accounts.
func (c *Client) UserCount(ctx context.Context, token string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, "/users/count", token, nil, nil, &out)
	return out.Count, err
}

// UpdateUser modifies an account.
func (c *Client) UpdateUser(ctx context.Context, token, id string, update UserUpdate) (User, error) {
	var u User
	err := c.do(ctx, http.MethodPut, "/users/"+id, token, nil, update, &u)
	return u, err
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+id, token, nil, nil, nil)
}
