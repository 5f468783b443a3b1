package messaging

import (
	"context"
	"encoding/json"
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

// GET /messages/with/:userId
func (c *Client) WithUser(ctx context.Context, token, userID string) ([]Message, error) {
	var raw json.RawMessage
	if _, err := c.api.Do(ctx, api.Request{
		Method: http.MethodGet,
		Path:   "/messages/with/" + url.PathEscape(userID),
		Token:  token,
		Accept: api.Status(http.StatusOK),
	}, &raw); err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	return api.DecodeList[Message](raw)
}

// POST /messages
func (c *Client) Create(ctx context.Context, token string, req CreateMessageRequest) (*Message, error) {
	var out Message
	if _, err := c.api.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/messages",
		Token:  token,
		Body:   req,
		Accept: api.Status(http.StatusCreated),
	}, &out); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &out, nil
}

// GET /messages/conversations
func (c *Client) Conversations(ctx context.Context, token string) ([]Conversation, error) {
	var raw json.RawMessage
	if _, err := c.api.Do(ctx, api.Request{
		Method: http.MethodGet,
		Path:   "/messages/conversations",
		Token:  token,
		Accept: api.Status(http.StatusOK),
	}, &raw); err != nil {
		return nil, fmt.Errorf("fetch conversations: %w", err)
	}
	return api.DecodeList[Conversation](raw)
}
