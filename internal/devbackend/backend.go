// Package devbackend is an in-memory stand-in for the marketplace backend
// and the identity and storage providers, for local runs and tests.
package devbackend

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sudo-init-do/bazaar/internal/identity"
)

// PlatformFeePercent is taken from every order total.
const PlatformFeePercent = 10

type Backend struct {
	store    *store
	secret   []byte
	verifier identity.Verifier
	tokenTTL time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Backend)

func WithTokenTTL(d time.Duration) Option {
	return func(b *Backend) { b.tokenTTL = d }
}

func WithNow(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// New returns a backend signing ID tokens with secret. Tokens it issues
// verify with identity.NewLocalVerifier(secret).
func New(secret string, opts ...Option) *Backend {
	b := &Backend{
		store:    newStore(),
		secret:   []byte(secret),
		verifier: identity.NewLocalVerifier(secret),
		tokenTTL: time.Hour,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DisableUser flips the disabled flag on an account. Disabled accounts can
// neither sign in nor refresh.
func (b *Backend) DisableUser(id string, disabled bool) bool {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	acc, ok := b.store.accounts[id]
	if ok {
		acc.Disabled = disabled
	}
	return ok
}

// Router builds the gin engine. allowOrigins empty means any origin.
func (b *Backend) Router(allowOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	if len(allowOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowOrigins
	}
	config.AllowHeaders = append(config.AllowHeaders, "Authorization")
	router.Use(cors.New(config))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// identity provider emulator; action paths contain a colon, so they
	// are dispatched by hand
	router.POST("/identitytoolkit.googleapis.com/v1/*action", func(c *gin.Context) {
		switch c.Param("action") {
		case "/accounts:signInWithPassword":
			b.signInWithPassword(c)
		default:
			providerError(c, http.StatusNotFound, "NOT_FOUND")
		}
	})
	router.POST("/securetoken.googleapis.com/v1/token", b.refreshToken)

	// object storage emulator
	router.POST("/v0/b/:bucket/o", b.requireAuth("Firebase"), b.uploadObject)
	router.GET("/v0/b/:bucket/o/*object", b.downloadObject)

	router.POST("/users", b.createUser)
	router.GET("/users/:id/profile", b.getProfile)
	router.GET("/listings/feed", b.getFeed)
	router.GET("/listings/:id", b.getListing)
	router.POST("/translate", b.translate)

	protected := router.Group("/")
	protected.Use(b.requireAuth("Bearer"))
	{
		protected.GET("/me", b.getMe)
		protected.POST("/listings", b.createListing)
		protected.GET("/orders/mine", b.getMyOrders)
		protected.GET("/orders/:id", b.getOrder)
		protected.POST("/orders", b.createOrder)
		protected.GET("/messages/with/:userId", b.getMessagesWith)
		protected.GET("/messages/conversations", b.getConversations)
		protected.POST("/messages", b.createMessage)
		protected.POST("/suggestions/newListing", b.newListingSuggestions)
	}

	return router
}
