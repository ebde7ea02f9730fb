package services

import (
	"context"
	"strings"

	"github.com/hongminglow/farmconnect/internal/apperr"
	"github.com/hongminglow/farmconnect/internal/backend"
	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/storage"
)

// DefaultProductPageSize is the product listing page size.
const DefaultProductPageSize = 10

// ProductFilter holds equality filters for the product listing. Empty
// fields are ignored; the rest are passed to the backend unmodified.
type ProductFilter struct {
	Category string
	FarmerID string
	Location string
}

func (f ProductFilter) apply(q *storage.Query) {
	if f.Category != "" {
		q.Eq("category", f.Category)
	}
	if f.FarmerID != "" {
		q.Eq("farmer_id", f.FarmerID)
	}
	if f.Location != "" {
		q.Eq("location", f.Location)
	}
}

// Products reads and writes product listings.
type Products struct {
	tables backend.Tables
}

func NewProducts(tables backend.Tables) *Products {
	return &Products{tables: tables}
}

// List pages through products matching f, newest first.
func (p *Products) List(ctx context.Context, pageNum, pageSize int, f ProductFilter) (models.Page[models.Product], error) {
	pageSize = pageSizeOr(pageSize, DefaultProductPageSize)
	from, to := storage.PageRange(pageNum, pageSize)
	q := storage.From(storage.TableProducts).Order("created_at", false).Range(from, to).WithCount()
	f.apply(q)
	res, err := p.tables.Select(ctx, q)
	if err != nil {
		return models.Page[models.Product]{}, err
	}
	return page[models.Product](res, pageNum, pageSize)
}

// ByFarmer returns every product owned by farmerID, newest first.
func (p *Products) ByFarmer(ctx context.Context, farmerID string) ([]models.Product, error) {
	q := storage.From(storage.TableProducts).Eq("farmer_id", farmerID).Order("created_at", false)
	res, err := p.tables.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	return storage.DecodeRows[models.Product](res.Rows)
}

// Categories returns the distinct product categories in name order.
func (p *Products) Categories(ctx context.Context) ([]string, error) {
	res, err := p.tables.Select(ctx, storage.From(storage.TableProducts).Select("category").Order("category", true))
	if err != nil {
		return nil, err
	}
	return distinct(res.Rows, "category"), nil
}

// Get fetches one product.
func (p *Products) Get(ctx context.Context, id string) (models.Product, error) {
	res, err := p.tables.Select(ctx, storage.From(storage.TableProducts).Eq("id", id).Take(1))
	if err != nil {
		return models.Product{}, err
	}
	return one[models.Product](res.Rows, "select", storage.TableProducts)
}

// Create lists a new product under owner, who must be a farmer.
func (p *Products) Create(ctx context.Context, owner models.User, product models.Product) (models.Product, error) {
	if !owner.IsFarmer() {
		return models.Product{}, invalid("create product", "only farmers can list products")
	}
	if err := validateProduct(product); err != nil {
		return models.Product{}, err
	}
	row := storage.Row{
		"name":      strings.TrimSpace(product.Name),
		"category":  strings.TrimSpace(product.Category),
		"price":     product.Price,
		"quantity":  product.Quantity,
		"unit":      strings.TrimSpace(product.Unit),
		"farmer_id": owner.ID,
	}
	setText(row, "description", product.Description)
	setText(row, "image_url", product.ImageURL)
	location := product.Location
	if location == "" {
		location = owner.Location
	}
	setText(row, "location", location)

	inserted, err := p.tables.Insert(ctx, storage.TableProducts, row)
	if err != nil {
		return models.Product{}, err
	}
	return one[models.Product]([]storage.Row{inserted}, "insert", storage.TableProducts)
}

// Update patches one of owner's products. Updating a product owner does
// not own reports not found.
func (p *Products) Update(ctx context.Context, owner models.User, id string, patch models.ProductUpdate) (models.Product, error) {
	if !owner.IsFarmer() {
		return models.Product{}, invalid("update product", "only farmers can edit products")
	}
	if (patch.Price != nil && *patch.Price < 0) || (patch.Quantity != nil && *patch.Quantity < 0) {
		return models.Product{}, invalid("update product", "price and quantity cannot be negative")
	}
	row, err := storage.Encode(patch)
	if err != nil {
		return models.Product{}, err
	}
	if len(row) == 0 {
		return models.Product{}, invalid("update product", "no fields to update")
	}
	rows, err := p.tables.Update(ctx, storage.TableProducts, row,
		storage.Eq("id", id), storage.Eq("farmer_id", owner.ID))
	if err != nil {
		return models.Product{}, err
	}
	return one[models.Product](rows, "update", storage.TableProducts)
}

// Delete removes one of owner's products.
func (p *Products) Delete(ctx context.Context, owner models.User, id string) error {
	if !owner.IsFarmer() {
		return invalid("delete product", "only farmers can delete products")
	}
	n, err := p.tables.Delete(ctx, storage.TableProducts, storage.Eq("id", id), storage.Eq("farmer_id", owner.ID))
	if err != nil {
		return err
	}
	if n == 0 {
		return &apperr.QueryError{Op: "delete", Table: storage.TableProducts, Code: apperr.CodeNotFound, Err: storage.ErrNotFound}
	}
	return nil
}

func validateProduct(p models.Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return invalid("create product", "name is required")
	case strings.TrimSpace(p.Category) == "":
		return invalid("create product", "category is required")
	case strings.TrimSpace(p.Unit) == "":
		return invalid("create product", "unit is required")
	case p.Price < 0 || p.Quantity < 0:
		return invalid("create product", "price and quantity cannot be negative")
	}
	return nil
}

func distinct(rows []storage.Row, column string) []string {
	seen := make(map[string]bool, len(rows))
	var out []string
	for _, row := range rows {
		v, ok := row[column].(string)
		if !ok || v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
