package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticImages []string

func (s staticImages) URLs() []string { return s }

func TestListingFormValidate(t *testing.T) {
	valid := ListingForm{Title: "Desk lamp", Price: "1200", Quantity: "2", Condition: "good"}
	imgs := staticImages{"https://img/1.jpg"}

	require.NoError(t, valid.Validate(imgs))

	tests := []struct {
		name   string
		mutate func(*ListingForm)
		images ImageSource
		field  string
	}{
		{"empty title", func(f *ListingForm) { f.Title = "   " }, imgs, "title"},
		{"short title", func(f *ListingForm) { f.Title = " ab " }, imgs, "title"},
		{"missing price", func(f *ListingForm) { f.Price = "" }, imgs, "price"},
		{"price not a number", func(f *ListingForm) { f.Price = "cheap" }, imgs, "price"},
		{"price below minimum", func(f *ListingForm) { f.Price = "99" }, imgs, "price"},
		{"fractional price", func(f *ListingForm) { f.Price = "150.5" }, imgs, "price"},
		{"zero quantity", func(f *ListingForm) { f.Quantity = "0" }, imgs, "quantity"},
		{"fractional quantity", func(f *ListingForm) { f.Quantity = "1.5" }, imgs, "quantity"},
		{"missing condition", func(f *ListingForm) { f.Condition = "" }, imgs, "condition"},
		{"unknown condition", func(f *ListingForm) { f.Condition = "mint" }, imgs, "condition"},
		{"no images", func(f *ListingForm) {}, staticImages{}, "images"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.mutate(&f)
			fe, ok := AsFieldErrors(f.Validate(tt.images))
			require.True(t, ok)
			assert.Contains(t, fe, tt.field)
			assert.Len(t, fe, 1)
		})
	}
}

func TestListingFormRequest(t *testing.T) {
	f := ListingForm{Title: "  Desk lamp ", Description: "  ", Price: "100", Condition: "new"}
	req, err := f.Request(staticImages{"https://img/1.jpg", "https://img/2.jpg"}, true)
	require.NoError(t, err)

	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"title": "Desk lamp",
		"images": [{"url":"https://img/1.jpg"},{"url":"https://img/2.jpg"}],
		"price": 100,
		"item_condition": "new",
		"is_active": true
	}`, string(b))
}

func TestSubmitListingInvalidFormSkipsNetwork(t *testing.T) {
	calls := 0
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) { calls++ })

	_, err := svc.SubmitListing(signedIn("me"), ListingForm{Title: "x"}, staticImages{}, true)
	_, ok := AsFieldErrors(err)
	assert.True(t, ok)
	assert.Equal(t, 0, calls)

	_, err = svc.SubmitListing(context.Background(), ListingForm{Title: "Lamp", Price: "100", Condition: "new"}, staticImages{"u"}, true)
	assert.Error(t, err)
	assert.Equal(t, 0, calls)
}
