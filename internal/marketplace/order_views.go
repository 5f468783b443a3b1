package marketplace

// OrderViews splits a user's orders by their role in them.
type OrderViews struct {
	Bought []Order `json:"bought"`
	Sold   []Order `json:"sold"`
}

// SplitOrders partitions orders by whether viewerID bought or sold them.
// Orders the viewer is not a party to are dropped.
func SplitOrders(orders []Order, viewerID string) OrderViews {
	v := OrderViews{Bought: []Order{}, Sold: []Order{}}
	for _, o := range orders {
		switch viewerID {
		case o.BuyerID:
			v.Bought = append(v.Bought, o)
		case o.SellerID:
			v.Sold = append(v.Sold, o)
		}
	}
	return v
}

// FilterOrders keeps orders with the given status. An empty status or
// "all" keeps everything.
func FilterOrders(orders []Order, status OrderStatus) []Order {
	if status == "" || status == "all" {
		return orders
	}
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}
