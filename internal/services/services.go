// Package services holds the per-view data fetchers. Each one issues plain
// table reads and writes through the backend client; none caches.
package services

import (
	"fmt"

	"github.com/hongminglow/farmconnect/internal/apperr"
	"github.com/hongminglow/farmconnect/internal/backend"
	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/storage"
)

// Set bundles every data fetcher the views use.
type Set struct {
	Profiles  *Profiles
	Products  *Products
	Messages  *Messages
	Prices    *MarketPrices
	Alerts    *Alerts
	Dashboard *Dashboard
}

// New builds the fetchers over one backend table surface.
func New(tables backend.Tables) Set {
	profiles := NewProfiles(tables)
	products := NewProducts(tables)
	messages := NewMessages(tables, profiles)
	prices := NewMarketPrices(tables)
	alerts := NewAlerts(tables)
	return Set{
		Profiles:  profiles,
		Products:  products,
		Messages:  messages,
		Prices:    prices,
		Alerts:    alerts,
		Dashboard: NewDashboard(prices, products, messages, alerts),
	}
}

func page[T any](res storage.Result, pageNum, pageSize int) (models.Page[T], error) {
	items, err := storage.DecodeRows[T](res.Rows)
	if err != nil {
		return models.Page[T]{}, err
	}
	if pageNum < 1 {
		pageNum = 1
	}
	return models.Page[T]{Items: items, Count: res.Count, Page: pageNum, PageSize: pageSize}, nil
}

func one[T any](rows []storage.Row, op, table string) (T, error) {
	var out T
	if len(rows) == 0 {
		return out, &apperr.QueryError{Op: op, Table: table, Code: apperr.CodeNotFound, Err: storage.ErrNotFound}
	}
	if err := storage.Decode(rows[0], &out); err != nil {
		return out, fmt.Errorf("%s %s: %w", op, table, err)
	}
	return out, nil
}

func pageSizeOr(size, def int) int {
	if size <= 0 {
		return def
	}
	if size > 100 {
		return 100
	}
	return size
}

func invalid(op, reason string) error {
	return &apperr.PreconditionError{Op: op, Reason: reason}
}
