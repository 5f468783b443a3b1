package devbackend

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/bazaar/internal/identity"
)

// providerError answers in the identity provider's error format.
func providerError(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": status, "message": code}})
}

// mintToken signs an ID token for acc.
func (b *Backend) mintToken(acc *account) (string, error) {
	now := b.now()
	claims := identity.TokenClaims{
		Email:  acc.Email,
		UserID: acc.ID,
		Name:   acc.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acc.ID,
			Issuer:    "bazaar-devbackend",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

func (b *Backend) issueRefreshToken(uid string) string {
	tok := uuid.NewString()
	b.store.mu.Lock()
	b.store.refresh[tok] = uid
	b.store.mu.Unlock()
	return tok
}

// POST /identitytoolkit.googleapis.com/v1/accounts:signInWithPassword
func (b *Backend) signInWithPassword(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		providerError(c, http.StatusBadRequest, "INVALID_JSON")
		return
	}

	b.store.mu.RLock()
	acc := b.store.accounts[b.store.byEmail[strings.ToLower(strings.TrimSpace(req.Email))]]
	b.store.mu.RUnlock()

	if acc == nil || bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(req.Password)) != nil {
		providerError(c, http.StatusBadRequest, "INVALID_LOGIN_CREDENTIALS")
		return
	}
	if acc.Disabled {
		providerError(c, http.StatusBadRequest, "USER_DISABLED")
		return
	}

	idToken, err := b.mintToken(acc)
	if err != nil {
		providerError(c, http.StatusInternalServerError, "INTERNAL_ERROR")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"localId":      acc.ID,
		"email":        acc.Email,
		"displayName":  acc.Name,
		"idToken":      idToken,
		"refreshToken": b.issueRefreshToken(acc.ID),
		"expiresIn":    strconv.Itoa(int(b.tokenTTL / time.Second)),
		"registered":   true,
	})
}

// POST /securetoken.googleapis.com/v1/token
func (b *Backend) refreshToken(c *gin.Context) {
	if c.PostForm("grant_type") != "refresh_token" {
		providerError(c, http.StatusBadRequest, "INVALID_GRANT_TYPE")
		return
	}
	old := c.PostForm("refresh_token")

	b.store.mu.Lock()
	uid, ok := b.store.refresh[old]
	acc := b.store.accounts[uid]
	if ok {
		delete(b.store.refresh, old)
	}
	b.store.mu.Unlock()

	if !ok || acc == nil {
		providerError(c, http.StatusBadRequest, "INVALID_REFRESH_TOKEN")
		return
	}
	if acc.Disabled {
		providerError(c, http.StatusBadRequest, "USER_DISABLED")
		return
	}

	idToken, err := b.mintToken(acc)
	if err != nil {
		providerError(c, http.StatusInternalServerError, "INTERNAL_ERROR")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id_token":      idToken,
		"refresh_token": b.issueRefreshToken(acc.ID),
		"expires_in":    strconv.Itoa(int(b.tokenTTL / time.Second)),
		"token_type":    "Bearer",
		"user_id":       acc.ID,
	})
}

// requireAuth verifies the ID token in the Authorization header. The
// storage API uses the "Firebase" scheme, everything else "Bearer".
func (b *Backend) requireAuth(scheme string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, scheme+" ")
		if header == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			return
		}
		verified, err := b.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set("userID", verified.UID)
		c.Next()
	}
}
