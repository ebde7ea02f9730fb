package services

import (
	"context"
	"strings"

	"github.com/hongminglow/farmconnect/internal/backend"
	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/storage"
)

// Alerts manages a user's price alerts.
type Alerts struct {
	tables backend.Tables
}

func NewAlerts(tables backend.Tables) *Alerts {
	return &Alerts{tables: tables}
}

// List returns userID's alerts, newest first.
func (a *Alerts) List(ctx context.Context, userID string) ([]models.PriceAlert, error) {
	q := storage.From(storage.TablePriceAlerts).Eq("user_id", userID).Order("created_at", false)
	res, err := a.tables.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	return storage.DecodeRows[models.PriceAlert](res.Rows)
}

// ActiveCount returns how many of userID's alerts are active.
func (a *Alerts) ActiveCount(ctx context.Context, userID string) (int, error) {
	q := storage.From(storage.TablePriceAlerts).
		Select("id").
		Eq("user_id", userID).
		Eq("active", true).
		Range(0, 0).
		WithCount()
	res, err := a.tables.Select(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// Create adds an active alert for product between min and max.
func (a *Alerts) Create(ctx context.Context, userID, product string, minPrice, maxPrice float64) (models.PriceAlert, error) {
	product = strings.TrimSpace(product)
	switch {
	case product == "":
		return models.PriceAlert{}, invalid("create alert", "product is required")
	case minPrice < 0 || maxPrice < minPrice:
		return models.PriceAlert{}, invalid("create alert", "price band must satisfy 0 <= min <= max")
	}
	inserted, err := a.tables.Insert(ctx, storage.TablePriceAlerts, storage.Row{
		"product":   product,
		"min_price": minPrice,
		"max_price": maxPrice,
		"user_id":   userID,
	})
	if err != nil {
		return models.PriceAlert{}, err
	}
	return one[models.PriceAlert]([]storage.Row{inserted}, "insert", storage.TablePriceAlerts)
}

// SetActive switches one of userID's alerts on or off.
func (a *Alerts) SetActive(ctx context.Context, userID, id string, active bool) (models.PriceAlert, error) {
	rows, err := a.tables.Update(ctx, storage.TablePriceAlerts, storage.Row{"active": active},
		storage.Eq("id", id), storage.Eq("user_id", userID))
	if err != nil {
		return models.PriceAlert{}, err
	}
	return one[models.PriceAlert](rows, "update", storage.TablePriceAlerts)
}
