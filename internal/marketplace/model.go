package marketplace

import (
	"encoding/json"
	"fmt"
	"time"
)

type ListingStatus string

const (
	ListingDraft  ListingStatus = "draft"
	ListingActive ListingStatus = "active"
	ListingSold   ListingStatus = "sold"
)

type ItemCondition string

const (
	ConditionNew       ItemCondition = "new"
	ConditionExcellent ItemCondition = "excellent"
	ConditionGood      ItemCondition = "good"
	ConditionNotGood   ItemCondition = "not_good"
	ConditionBad       ItemCondition = "bad"
)

var Conditions = []ItemCondition{
	ConditionNew, ConditionExcellent, ConditionGood, ConditionNotGood, ConditionBad,
}

func (c ItemCondition) Valid() bool {
	for _, known := range Conditions {
		if c == known {
			return true
		}
	}
	return false
}

// ListingImage is sent as {url, alt}. The backend may also return a bare
// URL string.
type ListingImage struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

func (img *ListingImage) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*img = ListingImage{URL: s}
		return nil
	}
	type plain ListingImage
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("listing image: %w", err)
	}
	*img = ListingImage(p)
	return nil
}

// Listing status is owned by the backend; we only ever read it.
type Listing struct {
	ID            string         `json:"id"`
	SellerID      string         `json:"seller_id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Images        []ListingImage `json:"images"`
	Price         int64          `json:"price"`
	Quantity      int            `json:"quantity"`
	Status        ListingStatus  `json:"status"`
	ItemCondition ItemCondition  `json:"item_condition"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Available reports whether the listing can be bought at all.
func (l *Listing) Available() bool {
	return l.Status == ListingActive && l.Quantity > 0
}

type OrderStatus string

const (
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
	OrderDisputed  OrderStatus = "disputed"
)

var OrderStatuses = []OrderStatus{
	OrderPaid, OrderShipped, OrderDelivered, OrderCompleted, OrderCancelled, OrderDisputed,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Order carries denormalized listing fields for display. NetPayout is
// computed by the backend and never recomputed here.
type Order struct {
	ID               string      `json:"id"`
	BuyerID          string      `json:"buyer_id"`
	SellerID         string      `json:"seller_id"`
	ListingID        string      `json:"listing_id"`
	ListingTitle     string      `json:"listing_title"`
	ListingMainImage string      `json:"listing_main_image"`
	ListingPrice     int64       `json:"listing_price"`
	Quantity         int         `json:"quantity"`
	TotalPrice       int64       `json:"total_price"`
	PlatformFee      int64       `json:"platform_fee"`
	NetPayout        int64       `json:"net_payout"`
	Status           OrderStatus `json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type FeedParams struct {
	Limit  int
	Offset int
}

type CreateListingRequest struct {
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Images        []ListingImage `json:"images"`
	Price         int64          `json:"price"`
	Quantity      int            `json:"quantity,omitempty"`
	ItemCondition ItemCondition  `json:"item_condition"`
	IsActive      bool           `json:"is_active"`
}

type CreateOrderRequest struct {
	ListingID string `json:"listing_id"`
	Quantity  int    `json:"quantity"`
}

type SuggestionLanguage string

const (
	LanguageEnglish  SuggestionLanguage = "en"
	LanguageJapanese SuggestionLanguage = "ja"
)

type NewListingSuggestionRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Condition   string             `json:"condition"`
	Language    SuggestionLanguage `json:"language"`
}

type TranslateRequest struct {
	Title          string `json:"title,omitempty"`
	Description    string `json:"description,omitempty"`
	TargetLanguage string `json:"target_language"`
}

type TranslateResponse struct {
	TranslatedTitle        string `json:"translated_title"`
	TranslatedDescription  string `json:"translated_description"`
	DetectedSourceLanguage string `json:"detected_source_language"`
}

// Translation is what callers get back from a successful translation.
type Translation struct {
	Title       string `json:"translated_title"`
	Description string `json:"translated_description"`
}
