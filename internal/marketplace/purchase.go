package marketplace

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrListingUnavailable = errors.New("listing is not available for purchase")
	ErrInvalidQuantity    = errors.New("invalid quantity")
)

// ValidatePurchase checks a quantity typed by the buyer against the listing.
// It never touches the network.
func ValidatePurchase(l *Listing, quantityInput string) (int, error) {
	if l == nil || !l.Available() {
		return 0, ErrListingUnavailable
	}
	q, err := strconv.Atoi(strings.TrimSpace(quantityInput))
	if err != nil || q <= 0 || q > l.Quantity {
		return 0, fmt.Errorf("%w: must be a whole number between 1 and %d", ErrInvalidQuantity, l.Quantity)
	}
	return q, nil
}
