package services

import (
	"context"
	"fmt"

	"github.com/hongminglow/farmconnect/internal/models"
)

// DashboardData is everything the dashboard view renders.
type DashboardData struct {
	MarketPrices   []models.MarketPrice `json:"market_prices"`
	Products       []models.Product     `json:"products"`
	ProductCount   int                  `json:"product_count"`
	UnreadMessages int                  `json:"unread_messages"`
	ActiveAlerts   int                  `json:"active_alerts"`
}

// Dashboard assembles the dashboard from the other fetchers.
type Dashboard struct {
	prices   *MarketPrices
	products *Products
	messages *Messages
	alerts   *Alerts
}

func NewDashboard(prices *MarketPrices, products *Products, messages *Messages, alerts *Alerts) *Dashboard {
	return &Dashboard{prices: prices, products: products, messages: messages, alerts: alerts}
}

// Load reads the dashboard for user. Farmers also get their own products.
func (d *Dashboard) Load(ctx context.Context, user models.User) (DashboardData, error) {
	prices, err := d.prices.Latest(ctx, DashboardPriceCount)
	if err != nil {
		return DashboardData{}, fmt.Errorf("load market prices: %w", err)
	}
	data := DashboardData{MarketPrices: prices, Products: []models.Product{}}

	if user.IsFarmer() {
		products, err := d.products.ByFarmer(ctx, user.ID)
		if err != nil {
			return DashboardData{}, fmt.Errorf("load products: %w", err)
		}
		data.Products = products
		data.ProductCount = len(products)
	}

	if data.UnreadMessages, err = d.messages.UnreadCount(ctx, user.ID); err != nil {
		return DashboardData{}, fmt.Errorf("count unread messages: %w", err)
	}
	if data.ActiveAlerts, err = d.alerts.ActiveCount(ctx, user.ID); err != nil {
		return DashboardData{}, fmt.Errorf("count alerts: %w", err)
	}
	return data, nil
}
