package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sudo-init-do/bazaar/internal/api"
)

const (
	DefaultFeedLimit = 20
)

// Client covers the listings, orders, suggestions and translation
// resources of the backend.
type Client struct {
	api *api.Client
}

func NewClient(c *api.Client) *Client {
	return &Client{api: c}
}

// GET /listings/feed
func (c *Client) Feed(ctx context.Context, p FeedParams) ([]Listing, error) {
	if p.Limit <= 0 {
		p.Limit = DefaultFeedLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	var raw json.RawMessage
	if _, err := c.api.Do(ctx, api.Request{
		Method: http.MethodGet,
		Path:   "/listings/feed",
		Query: url.Values{
			"limit":  {strconv.Itoa(p.Limit)},
			"offset": {strconv.Itoa(p.Offset)},
		},
		Accept: api.Status(http.StatusOK),
	}, &raw); err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	return api.DecodeList[Listing](raw)
}

// GET /listings/:id; nil when not found.
func (c *Client) Listing(ctx context.Context, id string) (*Listing, error) {
	var out Listing
	status, err := c.api.Do(ctx, api.Request{
		Method: http.MethodGet,
		Path:   "/listings/" + url.PathEscape(id),
		Accept: api.Status(http.StatusOK, http.StatusNotFound),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return &out, nil
}

// POST /listings
func (c *Client) CreateListing(ctx context.Context, token string, req CreateListingRequest) (*Listing, error) {
	var out Listing
	if _, err := c.api.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/listings",
		Token:  token,
		Body:   req,
		Accept: api.Status(http.StatusCreated),
	}, &out); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}
	return &out, nil
}

// GET /orders/:id; nil when not found.
func (c *Client) Order(ctx context.Context, token, id string) (*Order, error) {
	var out Order
	status, err := c.api.Do(ctx, api.Request{
		Method: http.MethodGet,
		Path:   "/orders/" + url.PathEscape(id),
		Token:  token,
		Accept: api.Status(http.StatusOK, http.StatusNotFound),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return &out, nil
}

// POST /orders
func (c *Client) CreateOrder(ctx context.Context, token string, req CreateOrderRequest) (*Order, error) {
	var out Order
	if _, err := c.api.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/orders",
		Token:  token,
		Body:   req,
		Accept: api.Status(http.StatusCreated),
	}, &out); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &out, nil
}

// GET /orders/mine
func (c *Client) MyOrders(ctx context.Context, token string) ([]Order, error) {
	var raw json.RawMessage
	if _, err := c.api.Do(ctx, api.Request{
		Method: http.MethodGet,
		Path:   "/orders/mine",
		Token:  token,
		Accept: api.Status(http.StatusOK),
	}, &raw); err != nil {
		return nil, fmt.Errorf("fetch my orders: %w", err)
	}
	return api.DecodeList[Order](raw)
}

// POST /suggestions/newListing
func (c *Client) NewListingSuggestions(ctx context.Context, token string, req NewListingSuggestionRequest) ([]string, error) {
	var out struct {
		Suggestions json.RawMessage `json:"suggestions"`
	}
	if _, err := c.api.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/suggestions/newListing",
		Token:  token,
		Body:   req,
		Accept: api.Status(http.StatusOK),
	}, &out); err != nil {
		return nil, fmt.Errorf("generate listing suggestions: %w", err)
	}
	return api.DecodeList[string](out.Suggestions)
}

// POST /translate
func (c *Client) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	var out TranslateResponse
	if _, err := c.api.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/translate",
		Body:   req,
		Accept: api.Status(http.StatusOK),
	}, &out); err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}
	return &out, nil
}
