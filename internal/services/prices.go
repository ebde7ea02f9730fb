package services

import (
	"context"

	"github.com/hongminglow/farmconnect/internal/backend"
	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/storage"
)

const (
	// DefaultPricePageSize is the market price listing page size.
	DefaultPricePageSize = 20
	// DashboardPriceCount is how many recent prices the dashboard shows.
	DashboardPriceCount = 10
)

// PriceFilter holds equality filters for market prices.
type PriceFilter struct {
	Product  string
	Market   string
	Location string
}

// MarketPrices reads the market price reference table.
type MarketPrices struct {
	tables backend.Tables
}

func NewMarketPrices(tables backend.Tables) *MarketPrices {
	return &MarketPrices{tables: tables}
}

// Latest returns the n most recently updated prices.
func (m *MarketPrices) Latest(ctx context.Context, n int) ([]models.MarketPrice, error) {
	q := storage.From(storage.TableMarketPrices).Order("updated_at", false).Take(n)
	res, err := m.tables.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	return storage.DecodeRows[models.MarketPrice](res.Rows)
}

// List pages through prices matching f, most recently updated first.
func (m *MarketPrices) List(ctx context.Context, pageNum, pageSize int, f PriceFilter) (models.Page[models.MarketPrice], error) {
	pageSize = pageSizeOr(pageSize, DefaultPricePageSize)
	from, to := storage.PageRange(pageNum, pageSize)
	q := storage.From(storage.TableMarketPrices).Order("updated_at", false).Range(from, to).WithCount()
	if f.Product != "" {
		q.Where(storage.ILike("product", f.Product))
	}
	if f.Market != "" {
		q.Eq("market", f.Market)
	}
	if f.Location != "" {
		q.Eq("location", f.Location)
	}
	res, err := m.tables.Select(ctx, q)
	if err != nil {
		return models.Page[models.MarketPrice]{}, err
	}
	return page[models.MarketPrice](res, pageNum, pageSize)
}

// Products returns the distinct product names with a price, in name order.
func (m *MarketPrices) Products(ctx context.Context) ([]string, error) {
	res, err := m.tables.Select(ctx, storage.From(storage.TableMarketPrices).Select("product").Order("product", true))
	if err != nil {
		return nil, err
	}
	return distinct(res.Rows, "product"), nil
}
