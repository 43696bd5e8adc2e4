package products

import "time"

// Product is a tracked product page. Prices is its append-only history,
// oldest first; a stored product always has at least the seed entry.
type Product struct {
	ID        int            `json:"id"`
	Name      string         `json:"name"`
	URL       string         `json:"url"`
	Domain    string         `json:"domain"`
	CreatedAt time.Time      `json:"created_at"`
	Prices    []PriceHistory `json:"prices"`
}

// PriceHistory is a single price observation.
type PriceHistory struct {
	ID         int       `json:"id"`
	ProductID  int       `json:"product_id"`
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}
