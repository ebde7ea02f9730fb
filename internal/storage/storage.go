package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/farmconnect/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrConstraint indicates a foreign key or check constraint rejected a write.
var ErrConstraint = errors.New("constraint violation")

// ErrUnknownTable indicates a query named a table outside the schema.
var ErrUnknownTable = errors.New("unknown table")

// ErrUnknownColumn indicates a query named a column outside the table.
var ErrUnknownColumn = errors.New("unknown column")

// ErrReadOnlyColumn indicates a write tried to set a store-assigned column.
var ErrReadOnlyColumn = errors.New("column is assigned by the store")

// ErrUnfiltered indicates an update or delete without any row filter.
var ErrUnfiltered = errors.New("update and delete require a filter")

// IdentityStore persists the credentials behind sessions.
type IdentityStore interface {
	CreateIdentity(ctx context.Context, email, passwordHash string) (models.Identity, error)
	FindIdentityByEmail(ctx context.Context, email string) (models.Identity, error)
	FindIdentityByID(ctx context.Context, id string) (models.Identity, error)
}

// TableStore executes generic row operations against the schema tables.
// It applies no authorization; callers are trusted.
type TableStore interface {
	Select(ctx context.Context, q *Query) (Result, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Update(ctx context.Context, table string, patch Row, filters []Filter) ([]Row, error)
	Delete(ctx context.Context, table string, filters []Filter) (int64, error)
}

// Store is a complete backend store.
type Store interface {
	IdentityStore
	TableStore
	Close()
}
