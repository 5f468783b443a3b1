package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sudo-init-do/bazaar/internal/identity"
	"github.com/sudo-init-do/bazaar/internal/user"
)

var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrMissingPassword = errors.New("password is required")
)

var validate = validator.New()

// Provider is the identity provider session.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*identity.User, error)
	SignOut(ctx context.Context) error
}

// Registrar creates backend user records.
type Registrar interface {
	Create(ctx context.Context, req user.CreateUserRequest) (*user.CreatedUser, error)
}

type Service struct {
	provider Provider
	users    Registrar
}

func NewService(provider Provider, users Registrar) *Service {
	return &Service{provider: provider, users: users}
}

type SignUpRequest struct {
	Name     string
	Email    string
	Password string
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*identity.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrMissingPassword
	}
	return s.provider.SignIn(ctx, email, password)
}

// SignUp creates the backend user, which also registers the credentials
// with the provider, then signs in with them.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*identity.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, ErrMissingPassword
	}
	if _, err := s.users.Create(ctx, user.CreateUserRequest{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: req.Password,
	}); err != nil {
		return nil, err
	}
	u, err := s.provider.SignIn(ctx, email, req.Password)
	if err != nil {
		return nil, fmt.Errorf("account created but sign in failed: %w", err)
	}
	return u, nil
}

func (s *Service) SignOut(ctx context.Context) error {
	return s.provider.SignOut(ctx)
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if err := validate.Var(raw, "required,email"); err != nil {
		return "", ErrInvalidEmail
	}
	return raw, nil
}
