package marketplace

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	MinPrice       = 100
	MinTitleLength = 3
)

// FieldErrors maps a form field to the reason it was rejected.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "invalid listing: " + strings.Join(parts, "; ")
}

// AsFieldErrors unwraps err into FieldErrors if it is one.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	ok := errors.As(err, &fe)
	return fe, ok
}

// ImageSource is anything holding upload results, e.g. an upload tray.
type ImageSource interface {
	URLs() []string
}

// ListingForm is the raw text a seller typed.
type ListingForm struct {
	Title       string
	Description string
	Price       string
	Quantity    string
	Condition   string
}

// Validate checks the form and the completed images. The returned error
// is FieldErrors.
func (f ListingForm) Validate(images ImageSource) error {
	errs := FieldErrors{}

	title := strings.TrimSpace(f.Title)
	switch {
	case title == "":
		errs["title"] = "required"
	case len([]rune(title)) < MinTitleLength:
		errs["title"] = "must be at least 3 characters"
	}

	if _, msg := parsePrice(f.Price); msg != "" {
		errs["price"] = msg
	}
	if _, msg := parseQuantity(f.Quantity); msg != "" {
		errs["quantity"] = msg
	}

	cond := strings.TrimSpace(f.Condition)
	switch {
	case cond == "":
		errs["condition"] = "required"
	case !ItemCondition(cond).Valid():
		errs["condition"] = "unknown condition"
	}

	if images == nil || len(images.URLs()) == 0 {
		errs["images"] = "at least one uploaded image is required"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Request validates the form and builds the create payload from it. Only
// completed uploads are included.
func (f ListingForm) Request(images ImageSource, active bool) (CreateListingRequest, error) {
	if err := f.Validate(images); err != nil {
		return CreateListingRequest{}, err
	}
	price, _ := parsePrice(f.Price)
	qty, _ := parseQuantity(f.Quantity)

	urls := images.URLs()
	imgs := make([]ListingImage, 0, len(urls))
	for _, u := range urls {
		imgs = append(imgs, ListingImage{URL: u})
	}
	return CreateListingRequest{
		Title:         strings.TrimSpace(f.Title),
		Description:   strings.TrimSpace(f.Description),
		Images:        imgs,
		Price:         price,
		Quantity:      qty,
		ItemCondition: ItemCondition(strings.TrimSpace(f.Condition)),
		IsActive:      active,
	}, nil
}

func parsePrice(raw string) (int64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, "required"
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, "must be a number"
	}
	if v != math.Trunc(v) {
		return 0, "must be a whole amount"
	}
	if v < MinPrice {
		return 0, "must be at least 100"
	}
	return int64(v), ""
}

// parseQuantity returns 0 for an empty field; the backend then applies its
// default.
func parseQuantity(raw string) (int, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ""
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, "must be a whole number of at least 1"
	}
	return v, ""
}
