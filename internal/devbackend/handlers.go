package devbackend

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/bazaar/internal/marketplace"
	"github.com/sudo-init-do/bazaar/internal/messaging"
	"github.com/sudo-init-do/bazaar/internal/user"
)

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func notFound(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

// POST /users
func (b *Backend) createUser(c *gin.Context) {
	var req user.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		badRequest(c, "email and password are required")
		return
	}
	if len(req.Password) < 6 {
		badRequest(c, "password must be at least 6 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	if _, taken := b.store.byEmail[email]; taken {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}
	acc := &account{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    b.now().UTC(),
	}
	b.store.accounts[acc.ID] = acc
	b.store.byEmail[email] = acc.ID

	b.logger.Info("user created", "user_id", acc.ID)
	c.JSON(http.StatusCreated, user.CreatedUser{ID: acc.ID, Name: acc.Name, Email: acc.Email})
}

// GET /me
func (b *Backend) getMe(c *gin.Context) {
	b.store.mu.RLock()
	acc, ok := b.store.accounts[c.GetString("userID")]
	b.store.mu.RUnlock()
	if !ok {
		notFound(c, "user")
		return
	}
	c.JSON(http.StatusOK, acc.user())
}

// GET /users/:id/profile
func (b *Backend) getProfile(c *gin.Context) {
	b.store.mu.RLock()
	acc, ok := b.store.accounts[c.Param("id")]
	b.store.mu.RUnlock()
	if !ok {
		notFound(c, "user")
		return
	}
	c.JSON(http.StatusOK, acc.profile())
}

// GET /listings/feed?limit=&offset=
func (b *Backend) getFeed(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		badRequest(c, "invalid limit")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		badRequest(c, "invalid offset")
		return
	}

	b.store.mu.RLock()
	all := b.store.activeListings()
	b.store.mu.RUnlock()

	if offset >= len(all) {
		c.JSON(http.StatusOK, []marketplace.Listing{})
		return
	}
	end := min(offset+limit, len(all))
	c.JSON(http.StatusOK, all[offset:end])
}

// GET /listings/:id
func (b *Backend) getListing(c *gin.Context) {
	b.store.mu.RLock()
	l, ok := b.store.listings[c.Param("id")]
	var out marketplace.Listing
	if ok {
		out = *l
	}
	b.store.mu.RUnlock()
	if !ok {
		notFound(c, "listing")
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /listings
func (b *Backend) createListing(c *gin.Context) {
	var req marketplace.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	switch {
	case strings.TrimSpace(req.Title) == "":
		badRequest(c, "title is required")
		return
	case req.Price < marketplace.MinPrice:
		badRequest(c, "price is below the minimum")
		return
	case !req.ItemCondition.Valid():
		badRequest(c, "invalid item condition")
		return
	case len(req.Images) == 0:
		badRequest(c, "at least one image is required")
		return
	case req.Quantity < 0:
		badRequest(c, "invalid quantity")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	status := marketplace.ListingDraft
	if req.IsActive {
		status = marketplace.ListingActive
	}

	now := b.now().UTC()
	l := &marketplace.Listing{
		ID:            uuid.NewString(),
		SellerID:      c.GetString("userID"),
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Images:        req.Images,
		Price:         req.Price,
		Quantity:      req.Quantity,
		Status:        status,
		ItemCondition: req.ItemCondition,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	b.store.mu.Lock()
	b.store.listings[l.ID] = l
	out := *l
	b.store.mu.Unlock()

	c.JSON(http.StatusCreated, out)
}

// GET /orders/mine
func (b *Backend) getMyOrders(c *gin.Context) {
	b.store.mu.RLock()
	orders := b.store.ordersOf(c.GetString("userID"))
	b.store.mu.RUnlock()
	c.JSON(http.StatusOK, orders)
}

// GET /orders/:id. Orders the caller is not a party to read as missing.
func (b *Backend) getOrder(c *gin.Context) {
	uid := c.GetString("userID")
	b.store.mu.RLock()
	o, ok := b.store.orders[c.Param("id")]
	var out marketplace.Order
	if ok {
		out = *o
	}
	b.store.mu.RUnlock()
	if !ok || (out.BuyerID != uid && out.SellerID != uid) {
		notFound(c, "order")
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /orders
func (b *Backend) createOrder(c *gin.Context) {
	var req marketplace.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.Quantity < 1 {
		badRequest(c, "quantity must be at least 1")
		return
	}
	buyer := c.GetString("userID")

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	l, ok := b.store.listings[req.ListingID]
	if !ok {
		notFound(c, "listing")
		return
	}
	if l.SellerID == buyer {
		badRequest(c, "cannot buy your own listing")
		return
	}
	if !l.Available() {
		c.JSON(http.StatusConflict, gin.H{"error": "listing is not available"})
		return
	}
	if req.Quantity > l.Quantity {
		c.JSON(http.StatusConflict, gin.H{"error": "not enough stock"})
		return
	}

	now := b.now().UTC()
	total := l.Price * int64(req.Quantity)
	fee := total * PlatformFeePercent / 100
	var mainImage string
	if len(l.Images) > 0 {
		mainImage = l.Images[0].URL
	}
	o := &marketplace.Order{
		ID:               uuid.NewString(),
		BuyerID:          buyer,
		SellerID:         l.SellerID,
		ListingID:        l.ID,
		ListingTitle:     l.Title,
		ListingMainImage: mainImage,
		ListingPrice:     l.Price,
		Quantity:         req.Quantity,
		TotalPrice:       total,
		PlatformFee:      fee,
		NetPayout:        total - fee,
		Status:           marketplace.OrderPaid,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	b.store.orders[o.ID] = o

	l.Quantity -= req.Quantity
	if l.Quantity == 0 {
		l.Status = marketplace.ListingSold
	}
	l.UpdatedAt = now

	b.logger.Info("order created", "order_id", o.ID, "listing_id", l.ID, "total", total)
	c.JSON(http.StatusCreated, *o)
}

// GET /messages/with/:userId. An empty thread is answered with null, as the
// production backend does.
func (b *Backend) getMessagesWith(c *gin.Context) {
	b.store.mu.RLock()
	msgs := b.store.between(c.GetString("userID"), c.Param("userId"))
	b.store.mu.RUnlock()
	c.JSON(http.StatusOK, msgs)
}

// GET /messages/conversations
func (b *Backend) getConversations(c *gin.Context) {
	b.store.mu.RLock()
	convs := b.store.conversations(c.GetString("userID"))
	b.store.mu.RUnlock()
	c.JSON(http.StatusOK, convs)
}

// POST /messages
func (b *Backend) createMessage(c *gin.Context) {
	var req messaging.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		badRequest(c, "content is required")
		return
	}
	sender := c.GetString("userID")
	if req.ReceiverID == sender {
		badRequest(c, "cannot message yourself")
		return
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	if _, ok := b.store.accounts[req.ReceiverID]; !ok {
		notFound(c, "receiver")
		return
	}
	m := messaging.Message{
		ID:         uuid.NewString(),
		SenderID:   sender,
		ReceiverID: req.ReceiverID,
		Content:    content,
		CreatedAt:  b.now().UTC(),
	}
	b.store.messages = append(b.store.messages, m)
	c.JSON(http.StatusCreated, m)
}
