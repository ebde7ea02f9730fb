package dto

import "github.com/hongminglow/farmconnect/internal/models"

type SendMessageRequest struct {
	Content string `json:"content"`
}

type CreateProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	ImageURL    string  `json:"image_url"`
	Location    string  `json:"location"`
}

type CreateAlertRequest struct {
	Product  string  `json:"product"`
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
}

type ToggleAlertRequest struct {
	Active bool `json:"active"`
}

type MarketPricesResponse struct {
	models.Page[models.MarketPrice]
	Products []string `json:"products"`
}
