package user

import (
	"context"

	"github.com/sudo-init-do/bazaar/internal/identity"
)

type Service struct {
	client   *Client
	identity identity.Resolver
}

func NewService(client *Client, resolver identity.Resolver) *Service {
	return &Service{client: client, identity: resolver}
}

// Me fetches the signed-in caller's backend record.
func (s *Service) Me(ctx context.Context) (*User, error) {
	_, token, err := identity.Require(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	return s.client.Me(ctx, token)
}

// FetchProfile loads the backend record for p. It is what the session
// manager calls on every identity change.
func (s *Service) FetchProfile(ctx context.Context, p identity.Principal) (*User, error) {
	token, err := p.IDToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.Me(ctx, token)
}

func (s *Service) PublicProfile(ctx context.Context, id string) (*Profile, error) {
	return s.client.PublicProfile(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateUserRequest) (*CreatedUser, error) {
	return s.client.Create(ctx, req)
}
