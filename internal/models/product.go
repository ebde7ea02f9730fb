package models

import "time"

// Product is a farmer's listing.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit"`
	FarmerID    string    `json:"farmer_id"`
	ImageURL    string    `json:"image_url,omitempty"`
	Location    string    `json:"location,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProductUpdate is a partial product write.
type ProductUpdate struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	Unit        *string  `json:"unit,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
	Location    *string  `json:"location,omitempty"`
}

// MarketPrice is read-only reference data.
type MarketPrice struct {
	ID        string    `json:"id"`
	Product   string    `json:"product"`
	Price     float64   `json:"price"`
	Market    string    `json:"market"`
	Location  string    `json:"location"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PriceAlert notifies a user when a product price leaves a band.
type PriceAlert struct {
	ID        string    `json:"id"`
	Product   string    `json:"product"`
	MinPrice  float64   `json:"min_price"`
	MaxPrice  float64   `json:"max_price"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`
}
