package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/bazaar/internal/api"
	"github.com/sudo-init-do/bazaar/internal/identity"
)

func signedIn(uid string) context.Context {
	return identity.WithPrincipal(context.Background(), identity.NewTokenPrincipal(uid, uid+"@example.com", "tok-"+uid))
}

func newTestService(t *testing.T, h http.HandlerFunc, opts ...ServiceOption) *Service {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewService(NewClient(api.New(srv.URL)), identity.ContextResolver{}, opts...)
}

func TestFeedDropsListingsWithoutImages(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Listing{
			{ID: "a", Title: "A", Price: 100, Images: []ListingImage{{URL: " https://img/a.jpg "}}},
			{ID: "b", Title: "B", Price: 200},
			{ID: "c", Title: "C", Price: 300, Images: []ListingImage{{URL: "  "}, {URL: "https://img/c2.jpg"}}},
		})
	})

	items, err := svc.Feed(context.Background(), FeedParams{})
	require.NoError(t, err)
	assert.Equal(t, []FeedItem{
		{ID: "a", Title: "A", Price: 100, MainImage: "https://img/a.jpg"},
		{ID: "c", Title: "C", Price: 300, MainImage: "https://img/c2.jpg"},
	}, items)
}

func TestFeedHonorsImageHosts(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Listing{
			{ID: "a", Images: []ListingImage{{URL: "https://evil.example/a.jpg"}}},
			{ID: "b", Images: []ListingImage{{URL: "http://cdn.example.com/b.jpg"}, {URL: "https://cdn.example.com/b2.jpg"}}},
		})
	}, WithImagePolicy(ImagePolicy{Hosts: []string{"cdn.example.com"}}))

	items, err := svc.Feed(context.Background(), FeedParams{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://cdn.example.com/b2.jpg", items[0].MainImage)
}

func TestPurchaseQuantity(t *testing.T) {
	var creates atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		creates.Add(1)
		var req CreateOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Order{ID: "o1", ListingID: req.ListingID, Quantity: req.Quantity})
	})
	listing := &Listing{ID: "l1", Status: ListingActive, Quantity: 5}
	ctx := signedIn("buyer")

	_, err := svc.Purchase(ctx, listing, "6")
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, int32(0), creates.Load())

	o, err := svc.Purchase(ctx, listing, "5")
	require.NoError(t, err)
	assert.Equal(t, 5, o.Quantity)
	assert.Equal(t, int32(1), creates.Load())
}

func TestPurchaseValidation(t *testing.T) {
	active := &Listing{ID: "l1", Status: ListingActive, Quantity: 3}
	tests := []struct {
		name    string
		listing *Listing
		input   string
		want    error
	}{
		{"zero", active, "0", ErrInvalidQuantity},
		{"negative", active, "-1", ErrInvalidQuantity},
		{"fraction", active, "1.5", ErrInvalidQuantity},
		{"text", active, "two", ErrInvalidQuantity},
		{"sold", &Listing{Status: ListingSold, Quantity: 3}, "1", ErrListingUnavailable},
		{"out of stock", &Listing{Status: ListingActive}, "1", ErrListingUnavailable},
		{"draft", &Listing{Status: ListingDraft, Quantity: 1}, "1", ErrListingUnavailable},
		{"nil", nil, "1", ErrListingUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidatePurchase(tt.listing, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	q, err := ValidatePurchase(active, " 3 ")
	require.NoError(t, err)
	assert.Equal(t, 3, q)
}

func TestAuthenticatedCallsShortCircuit(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })
	ctx := context.Background()

	_, err := svc.CreateListing(ctx, CreateListingRequest{})
	assert.ErrorIs(t, err, identity.ErrNotAuthenticated)
	_, err = svc.CreateOrder(ctx, CreateOrderRequest{})
	assert.ErrorIs(t, err, identity.ErrNotAuthenticated)
	_, err = svc.MyOrders(ctx)
	assert.ErrorIs(t, err, identity.ErrNotAuthenticated)
	_, err = svc.Order(ctx, "o1")
	assert.ErrorIs(t, err, identity.ErrNotAuthenticated)
	_, err = svc.Suggestions(ctx, NewListingSuggestionRequest{})
	assert.ErrorIs(t, err, identity.ErrNotAuthenticated)

	assert.Equal(t, int32(0), calls.Load())
}

func TestMyOrderViews(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/mine", r.URL.Path)
		json.NewEncoder(w).Encode([]Order{
			{ID: "1", BuyerID: "me", SellerID: "x", Status: OrderPaid},
			{ID: "2", BuyerID: "y", SellerID: "me", Status: OrderShipped},
			{ID: "3", BuyerID: "me", SellerID: "z", Status: OrderShipped},
		})
	})

	all, err := svc.MyOrderViews(signedIn("me"), "all")
	require.NoError(t, err)
	assert.Len(t, all.Bought, 2)
	assert.Len(t, all.Sold, 1)

	shipped, err := svc.MyOrderViews(signedIn("me"), OrderShipped)
	require.NoError(t, err)
	require.Len(t, shipped.Bought, 1)
	assert.Equal(t, "3", shipped.Bought[0].ID)
	assert.Equal(t, "2", shipped.Sold[0].ID)
}

func TestTranslateIsBestEffort(t *testing.T) {
	var status int
	var detected string
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(TranslateResponse{
			TranslatedTitle:        "Lamp",
			TranslatedDescription:  "A lamp",
			DetectedSourceLanguage: detected,
		})
	})
	ctx := context.Background()
	req := TranslateRequest{Title: "ランプ", TargetLanguage: "en"}

	status, detected = http.StatusOK, "ja"
	tr := svc.Translate(ctx, req)
	require.NotNil(t, tr)
	assert.Equal(t, "Lamp", tr.Title)

	status, detected = http.StatusOK, "en"
	assert.Nil(t, svc.Translate(ctx, req))

	status = http.StatusInternalServerError
	assert.Nil(t, svc.Translate(ctx, req))
}
