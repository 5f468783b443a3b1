package marketplace

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sudo-init-do/bazaar/internal/identity"
)

// Service composes the marketplace client with the caller's identity.
// User-scoped calls fail with identity.ErrNotAuthenticated before any
// request when nobody is signed in.
type Service struct {
	client   *Client
	identity identity.Resolver
	images   ImagePolicy
	logger   *slog.Logger
}

type ServiceOption func(*Service)

func WithImagePolicy(p ImagePolicy) ServiceOption {
	return func(s *Service) { s.images = p }
}

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(client *Client, resolver identity.Resolver, opts ...ServiceOption) *Service {
	s := &Service{client: client, identity: resolver, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ImagePolicy() ImagePolicy { return s.images }

func (s *Service) Feed(ctx context.Context, p FeedParams) ([]FeedItem, error) {
	listings, err := s.client.Feed(ctx, p)
	if err != nil {
		return nil, err
	}
	return ProjectFeed(listings, s.images), nil
}

func (s *Service) Listing(ctx context.Context, id string) (*Listing, error) {
	return s.client.Listing(ctx, id)
}

func (s *Service) CreateListing(ctx context.Context, req CreateListingRequest) (*Listing, error) {
	_, token, err := identity.Require(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	return s.client.CreateListing(ctx, token, req)
}

// SubmitListing validates the form and creates the listing in one step.
func (s *Service) SubmitListing(ctx context.Context, form ListingForm, images ImageSource, active bool) (*Listing, error) {
	req, err := form.Request(images, active)
	if err != nil {
		return nil, err
	}
	return s.CreateListing(ctx, req)
}

func (s *Service) Order(ctx context.Context, id string) (*Order, error) {
	_, token, err := identity.Require(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	return s.client.Order(ctx, token, id)
}

func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	_, token, err := identity.Require(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	return s.client.CreateOrder(ctx, token, req)
}

// Purchase validates the typed quantity against the listing and places the
// order. Validation failures never reach the network.
func (s *Service) Purchase(ctx context.Context, l *Listing, quantityInput string) (*Order, error) {
	q, err := ValidatePurchase(l, quantityInput)
	if err != nil {
		return nil, err
	}
	return s.CreateOrder(ctx, CreateOrderRequest{ListingID: l.ID, Quantity: q})
}

func (s *Service) MyOrders(ctx context.Context) ([]Order, error) {
	_, token, err := identity.Require(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	return s.client.MyOrders(ctx, token)
}

// MyOrderViews fetches the caller's orders split into bought and sold,
// keeping only the given status ("" or "all" for every status).
func (s *Service) MyOrderViews(ctx context.Context, status OrderStatus) (OrderViews, error) {
	p, token, err := identity.Require(ctx, s.identity)
	if err != nil {
		return OrderViews{}, err
	}
	orders, err := s.client.MyOrders(ctx, token)
	if err != nil {
		return OrderViews{}, err
	}
	return SplitOrders(FilterOrders(orders, status), p.UID()), nil
}

func (s *Service) Suggestions(ctx context.Context, req NewListingSuggestionRequest) ([]string, error) {
	_, token, err := identity.Require(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	return s.client.NewListingSuggestions(ctx, token, req)
}

// Translate is best effort: it returns nil when translation fails or the
// text is already in the target language.
func (s *Service) Translate(ctx context.Context, req TranslateRequest) *Translation {
	resp, err := s.client.Translate(ctx, req)
	if err != nil {
		s.logger.Warn("translation unavailable", "target", req.TargetLanguage, "error", err)
		return nil
	}
	if strings.EqualFold(resp.DetectedSourceLanguage, req.TargetLanguage) {
		return nil
	}
	return &Translation{
		Title:       resp.TranslatedTitle,
		Description: resp.TranslatedDescription,
	}
}
