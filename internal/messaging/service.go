package messaging

import (
	"context"
	"errors"
	"strings"

	"github.com/sudo-init-do/bazaar/internal/identity"
)

var (
	ErrEmptyMessage     = errors.New("message is empty")
	ErrMissingRecipient = errors.New("message has no recipient")
)

type Service struct {
	client   *Client
	identity identity.Resolver
}

func NewService(client *Client, resolver identity.Resolver) *Service {
	return &Service{client: client, identity: resolver}
}

// Send trims content and refuses to send an empty draft.
func (s *Service) Send(ctx context.Context, receiverID, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if receiverID == "" {
		return nil, ErrMissingRecipient
	}
	_, token, err := identity.Require(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	return s.client.Create(ctx, token, CreateMessageRequest{ReceiverID: receiverID, Content: content})
}

func (s *Service) WithUser(ctx context.Context, userID string) ([]Message, error) {
	_, token, err := identity.Require(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	return s.client.WithUser(ctx, token, userID)
}

// Thread returns the conversation with userID as seen by the caller.
func (s *Service) Thread(ctx context.Context, userID string) ([]ThreadMessage, error) {
	p, token, err := identity.Require(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	msgs, err := s.client.WithUser(ctx, token, userID)
	if err != nil {
		return nil, err
	}
	return Thread(msgs, p.UID()), nil
}

func (s *Service) Conversations(ctx context.Context) ([]Conversation, error) {
	_, token, err := identity.Require(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	return s.client.Conversations(ctx, token)
}
