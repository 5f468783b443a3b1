package user

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sudo-init-do/bazaar/internal/api"
)

type Client struct {
	api *api.Client
}

func NewClient(c *api.Client) *Client {
	return &Client{api: c}
}

// POST /users
func (c *Client) Create(ctx context.Context, req CreateUserRequest) (*CreatedUser, error) {
	var out CreatedUser
	if _, err := c.api.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/users",
		Body:   req,
		Accept: api.Status(http.StatusCreated),
	}, &out); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &out, nil
}

// GET /me
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var out User
	if _, err := c.api.Do(ctx, api.Request{
		Method: http.MethodGet,
		Path:   "/me",
		Token:  token,
		Accept: api.Status(http.StatusOK),
	}, &out); err != nil {
		return nil, fmt.Errorf("fetch current user: %w", err)
	}
	return &out, nil
}

// GET /users/:id/profile; nil when the user does not exist.
func (c *Client) PublicProfile(ctx context.Context, id string) (*Profile, error) {
	var out Profile
	status, err := c.api.Do(ctx, api.Request{
		Method: http.MethodGet,
		Path:   "/users/" + url.PathEscape(id) + "/profile",
		Accept: api.Status(http.StatusOK, http.StatusNotFound),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("fetch user profile: %w", err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return &out, nil
}
