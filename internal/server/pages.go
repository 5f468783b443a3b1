package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/bazaar/internal/auth"
	"github.com/sudo-init-do/bazaar/internal/marketplace"
)

// GET /market?limit=&offset=
func (s *Server) GetFeed(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	items, err := s.market.Feed(c.Request().Context(), marketplace.FeedParams{Limit: limit, Offset: offset})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GET /market/listings/:id?lang=
func (s *Server) GetListing(c echo.Context) error {
	ctx := c.Request().Context()
	listing, err := s.market.Listing(ctx, c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	if listing == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}

	resp := echo.Map{
		"listing":    listing,
		"main_image": s.market.ImagePolicy().MainImage(*listing),
		"available":  listing.Available(),
		"path":       auth.ListingPath(listing.ID),
	}
	if lang := c.QueryParam("lang"); lang != "" {
		if tr := s.market.Translate(ctx, marketplace.TranslateRequest{
			Title:          listing.Title,
			Description:    listing.Description,
			TargetLanguage: lang,
		}); tr != nil {
			resp["translation"] = tr
		}
	}
	if seller, err := s.users.PublicProfile(ctx, listing.SellerID); err == nil && seller != nil {
		resp["seller"] = seller
	}
	return c.JSON(http.StatusOK, resp)
}

// GET /market/users/:id
func (s *Server) GetUserProfile(c echo.Context) error {
	profile, err := s.users.PublicProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	if profile == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return c.JSON(http.StatusOK, profile)
}

// GET /market/orders?status=
func (s *Server) GetOrders(c echo.Context) error {
	status := marketplace.OrderStatus(c.QueryParam("status"))
	if status != "" && status != "all" && !status.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown order status"})
	}
	views, err := s.market.MyOrderViews(c.Request().Context(), status)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// GET /market/orders/:id
func (s *Server) GetOrder(c echo.Context) error {
	order, err := s.market.Order(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	if order == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}
	return c.JSON(http.StatusOK, order)
}

// GET /market/messages
func (s *Server) GetConversations(c echo.Context) error {
	convs, err := s.messages.Conversations(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"conversations": convs})
}

// GET /market/messages/:userId
func (s *Server) GetThread(c echo.Context) error {
	thread, err := s.messages.Thread(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": thread})
}
