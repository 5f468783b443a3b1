package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
)

// VerifiedToken is a token whose signature and expiry have been checked.
type VerifiedToken struct {
	UID       string
	Email     string
	ExpiresAt time.Time
}

type Verifier interface {
	Verify(ctx context.Context, idToken string) (*VerifiedToken, error)
}

// FirebaseVerifier checks ID tokens with the Firebase Admin SDK. It honors
// FIREBASE_AUTH_EMULATOR_HOST.
type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(ctx context.Context, projectID string) (*FirebaseVerifier, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*VerifiedToken, error) {
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	email, _ := tok.Claims["email"].(string)
	return &VerifiedToken{
		UID:       tok.UID,
		Email:     email,
		ExpiresAt: time.Unix(tok.Expires, 0),
	}, nil
}

// LocalVerifier checks HS256 tokens minted by the dev backend.
type LocalVerifier struct {
	secret []byte
}

func NewLocalVerifier(secret string) *LocalVerifier {
	return &LocalVerifier{secret: []byte(secret)}
}

func (v *LocalVerifier) Verify(_ context.Context, idToken string) (*VerifiedToken, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(idToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	if !token.Valid || claims.UID() == "" {
		return nil, errors.New("verify id token: invalid token claims")
	}
	return &VerifiedToken{
		UID:       claims.UID(),
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
