package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	identityToolkitURL = "https://identitytoolkit.googleapis.com"
	secureTokenURL     = "https://securetoken.googleapis.com"
)

// RESTBackend signs users in against the Identity Toolkit REST API and
// refreshes tokens through the Secure Token API.
type RESTBackend struct {
	apiKey      string
	identityURL string
	tokenURL    string
	http        *http.Client
}

type RESTOption func(*RESTBackend)

// WithEmulator routes both APIs through an emulator at host:port.
func WithEmulator(host string) RESTOption {
	return func(b *RESTBackend) {
		if host == "" {
			return
		}
		base := "http://" + strings.TrimPrefix(host, "http://")
		b.identityURL = base + "/identitytoolkit.googleapis.com"
		b.tokenURL = base + "/securetoken.googleapis.com"
	}
}

func WithRESTHTTPClient(hc *http.Client) RESTOption {
	return func(b *RESTBackend) { b.http = hc }
}

func NewRESTBackend(apiKey string, opts ...RESTOption) *RESTBackend {
	b := &RESTBackend{
		apiKey:      apiKey,
		identityURL: identityToolkitURL,
		tokenURL:    secureTokenURL,
		http:        &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type providerError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (b *RESTBackend) SignInWithPassword(ctx context.Context, email, password string) (*Tokens, error) {
	payload, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, err
	}
	u := b.identityURL + "/v1/accounts:signInWithPassword?key=" + url.QueryEscape(b.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out signInResponse
	if err := b.send(req, &out); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return &Tokens{
		UID:          out.LocalID,
		Email:        out.Email,
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    expiry(out.ExpiresIn),
	}, nil
}

func (b *RESTBackend) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	u := b.tokenURL + "/v1/token?key=" + url.QueryEscape(b.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out refreshResponse
	if err := b.send(req, &out); err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	tokens := &Tokens{
		UID:          out.UserID,
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    expiry(out.ExpiresIn),
	}
	if claims, err := ParseClaims(out.IDToken); err == nil {
		tokens.Email = claims.Email
		if tokens.UID == "" {
			tokens.UID = claims.UID()
		}
	}
	return tokens, nil
}

func (b *RESTBackend) send(req *http.Request, out any) error {
	resp, err := b.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return providerFailure(resp.StatusCode, body)
	}
	return json.Unmarshal(body, out)
}

// providerFailure maps provider error codes onto our sentinels. Messages can
// carry detail after the code, e.g. "TOO_MANY_ATTEMPTS_TRY_LATER : ...".
func providerFailure(status int, body []byte) error {
	var pe providerError
	_ = json.Unmarshal(body, &pe)
	code := pe.Error.Message
	if i := strings.IndexAny(code, " :"); i >= 0 {
		code = code[:i]
	}
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL":
		return ErrInvalidCredentials
	case "USER_DISABLED":
		return ErrUserDisabled
	case "TOKEN_EXPIRED", "INVALID_REFRESH_TOKEN", "USER_NOT_FOUND":
		return ErrSessionExpired
	}
	if code != "" {
		return fmt.Errorf("provider error: status=%d code=%s", status, code)
	}
	return fmt.Errorf("provider error: status=%d body=%s", status, body)
}

func expiry(expiresIn string) time.Time {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		secs = 3600
	}
	return time.Now().Add(time.Duration(secs) * time.Second)
}
