package api

import (
	"context"
	"fmt"
	"net/http"
)

// UpdateAuthTokenPath is served by our own web server, not the backend.
const UpdateAuthTokenPath = "/api/update-auth-token"

type updateAuthTokenBody struct {
	Token *string `json:"token"`
}

// UpdateAuthToken mirrors the current ID token into the server session
// cookie. A nil token clears it. c must point at the web server.
func (c *Client) UpdateAuthToken(ctx context.Context, token *string) error {
	_, err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   UpdateAuthTokenPath,
		Body:   updateAuthTokenBody{Token: token},
		Accept: Status(http.StatusOK),
	}, nil)
	if err != nil {
		return fmt.Errorf("update auth token: %w", err)
	}
	return nil
}
