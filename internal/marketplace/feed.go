package marketplace

import (
	"net/url"
	"strings"
)

// FeedItem is the card shown in the listing feed.
type FeedItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	MainImage string `json:"main_image"`
}

// ImagePolicy decides which image URLs may be displayed. With no hosts
// configured every non-empty URL is accepted; otherwise only https URLs on
// a listed host are.
type ImagePolicy struct {
	Hosts []string
}

func (p ImagePolicy) Allows(raw string) bool {
	if raw == "" {
		return false
	}
	if len(p.Hosts) == 0 {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" {
		return false
	}
	for _, h := range p.Hosts {
		if strings.EqualFold(u.Hostname(), h) {
			return true
		}
	}
	return false
}

// MainImage returns the first usable image URL of l, or "".
func (p ImagePolicy) MainImage(l Listing) string {
	for _, img := range l.Images {
		if u := strings.TrimSpace(img.URL); p.Allows(u) {
			return u
		}
	}
	return ""
}

// ProjectFeed maps listings to feed cards, dropping listings without a
// usable image. Order is preserved.
func ProjectFeed(listings []Listing, policy ImagePolicy) []FeedItem {
	items := make([]FeedItem, 0, len(listings))
	for _, l := range listings {
		img := policy.MainImage(l)
		if img == "" {
			continue
		}
		items = append(items, FeedItem{
			ID:        l.ID,
			Title:     l.Title,
			Price:     l.Price,
			MainImage: img,
		})
	}
	return items
}
