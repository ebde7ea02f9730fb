package services

import (
	"context"
	"strings"

	"github.com/hongminglow/farmconnect/internal/backend"
	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/storage"
)

// DefaultBuyerPageSize is the buyer directory page size.
const DefaultBuyerPageSize = 20

// Profiles reads and writes profile rows.
type Profiles struct {
	tables backend.Tables
}

func NewProfiles(tables backend.Tables) *Profiles {
	return &Profiles{tables: tables}
}

// Get fetches the profile with the given id.
func (p *Profiles) Get(ctx context.Context, id string) (models.User, error) {
	res, err := p.tables.Select(ctx, storage.From(storage.TableProfiles).Eq("id", id).Take(1))
	if err != nil {
		return models.User{}, err
	}
	return one[models.User](res.Rows, "select", storage.TableProfiles)
}

// Create inserts the profile row of a freshly created identity.
func (p *Profiles) Create(ctx context.Context, id, email string, fields models.ProfileFields) (models.User, error) {
	if !fields.UserType.Valid() {
		return models.User{}, invalid("create profile", "user_type must be farmer or buyer")
	}
	row := storage.Row{
		"id":        id,
		"email":     email,
		"user_type": string(fields.UserType),
	}
	setText(row, "full_name", fields.FullName)
	setText(row, "location", fields.Location)
	setText(row, "avatar_url", fields.AvatarURL)
	setText(row, "phone", fields.Phone)

	inserted, err := p.tables.Insert(ctx, storage.TableProfiles, row)
	if err != nil {
		return models.User{}, err
	}
	return one[models.User]([]storage.Row{inserted}, "insert", storage.TableProfiles)
}

// Update writes the set fields of patch to the profile with the given id.
func (p *Profiles) Update(ctx context.Context, id string, patch models.ProfileUpdate) (models.User, error) {
	row, err := storage.Encode(patch)
	if err != nil {
		return models.User{}, err
	}
	rows, err := p.tables.Update(ctx, storage.TableProfiles, row, storage.Eq("id", id))
	if err != nil {
		return models.User{}, err
	}
	return one[models.User](rows, "update", storage.TableProfiles)
}

// Lookup fetches the profiles with the given ids, keyed by id. Unknown ids
// are absent from the result.
func (p *Profiles) Lookup(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	res, err := p.tables.Select(ctx, storage.From(storage.TableProfiles).Where(storage.In("id", ids)))
	if err != nil {
		return nil, err
	}
	users, err := storage.DecodeRows[models.User](res.Rows)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// BuyerFilter narrows the buyer directory.
type BuyerFilter struct {
	Location string
	Search   string
}

// Buyers pages through profiles of buyers, newest first.
func (p *Profiles) Buyers(ctx context.Context, pageNum, pageSize int, f BuyerFilter) (models.Page[models.User], error) {
	pageSize = pageSizeOr(pageSize, DefaultBuyerPageSize)
	from, to := storage.PageRange(pageNum, pageSize)
	q := storage.From(storage.TableProfiles).
		Eq("user_type", string(models.Buyer)).
		Order("created_at", false).
		Range(from, to).
		WithCount()
	if loc := strings.TrimSpace(f.Location); loc != "" {
		q.Where(storage.ILike("location", "%"+loc+"%"))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Or(storage.And(storage.ILike("full_name", "%"+s+"%")), storage.And(storage.ILike("email", "%"+s+"%")))
	}
	res, err := p.tables.Select(ctx, q)
	if err != nil {
		return models.Page[models.User]{}, err
	}
	return page[models.User](res, pageNum, pageSize)
}

func setText(row storage.Row, column, value string) {
	if v := strings.TrimSpace(value); v != "" {
		row[column] = v
	}
}
