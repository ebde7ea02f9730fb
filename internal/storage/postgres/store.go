package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// Store provides Postgres-backed persistence for identities and marketplace tables.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store and runs migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS auth_identities (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS auth_identities_email_unique_idx ON auth_identities (lower(email));`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY REFERENCES auth_identities(id) ON DELETE CASCADE,
			email TEXT NOT NULL,
			full_name TEXT,
			user_type TEXT NOT NULL CHECK (user_type IN ('farmer', 'buyer')),
			location TEXT,
			avatar_url TEXT,
			phone TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS profiles_user_type_idx ON profiles (user_type);`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			name TEXT NOT NULL,
			description TEXT,
			category TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL CHECK (price >= 0),
			quantity DOUBLE PRECISION NOT NULL CHECK (quantity >= 0),
			unit TEXT NOT NULL,
			farmer_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			image_url TEXT,
			location TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS products_farmer_created_idx ON products (farmer_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS market_prices (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			product TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			market TEXT NOT NULL,
			location TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS market_prices_updated_idx ON market_prices (updated_at DESC);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			sender_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			receiver_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			"read" BOOLEAN NOT NULL DEFAULT FALSE
		);`,
		`CREATE INDEX IF NOT EXISTS messages_pair_created_idx ON messages (sender_id, receiver_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS messages_receiver_unread_idx ON messages (receiver_id) WHERE NOT "read";`,
		`CREATE TABLE IF NOT EXISTS price_alerts (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			product TEXT NOT NULL,
			min_price DOUBLE PRECISION NOT NULL,
			max_price DOUBLE PRECISION NOT NULL,
			user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			CHECK (min_price <= max_price)
		);`,
		`CREATE TABLE IF NOT EXISTS signup_outbox (
			identity_id TEXT PRIMARY KEY REFERENCES auth_identities(id) ON DELETE CASCADE,
			email TEXT NOT NULL,
			payload TEXT NOT NULL,
			error TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_at TIMESTAMPTZ
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// CreateIdentity inserts a new identity row.
func (s *Store) CreateIdentity(ctx context.Context, email, passwordHash string) (models.Identity, error) {
	const query = `
		INSERT INTO auth_identities (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, email, password_hash, created_at;
		`
	row := s.pool.QueryRow(ctx, query, email, passwordHash)
	created, err := scanIdentity(row)
	if err != nil {
		return models.Identity{}, translate(err)
	}
	return created, nil
}

// FindIdentityByEmail fetches an identity by email address.
func (s *Store) FindIdentityByEmail(ctx context.Context, email string) (models.Identity, error) {
	const query = `
	SELECT id, email, password_hash, created_at
	FROM auth_identities
	WHERE lower(email) = lower($1);
	`
	return scanIdentity(s.pool.QueryRow(ctx, query, email))
}

// FindIdentityByID fetches an identity by id.
func (s *Store) FindIdentityByID(ctx context.Context, id string) (models.Identity, error) {
	const query = `
	SELECT id, email, password_hash, created_at
	FROM auth_identities
	WHERE id = $1;
	`
	return scanIdentity(s.pool.QueryRow(ctx, query, id))
}

// Select runs a generic table read.
func (s *Store) Select(ctx context.Context, q *storage.Query) (storage.Result, error) {
	t, err := storage.Lookup(q.Table)
	if err != nil {
		return storage.Result{}, err
	}
	if err := t.CheckQuery(q); err != nil {
		return storage.Result{}, err
	}

	sql, args := buildSelect(q)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return storage.Result{}, translate(err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return storage.Result{}, translate(err)
	}

	result := storage.Result{Rows: toRows(maps), Count: len(maps)}
	if q.Count {
		countSQL, countArgs := buildCount(q)
		if err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&result.Count); err != nil {
			return storage.Result{}, translate(err)
		}
	}
	return result, nil
}

// Insert adds a row and returns it as stored.
func (s *Store) Insert(ctx context.Context, table string, row storage.Row) (storage.Row, error) {
	t, err := storage.Lookup(table)
	if err != nil {
		return nil, err
	}
	if err := t.CheckWrite(row); err != nil {
		return nil, err
	}

	sql, args := buildInsert(table, row)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate(err)
	}
	inserted, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, translate(err)
	}
	return storage.Row(inserted), nil
}

// Update applies patch to the rows matching filters and returns them.
func (s *Store) Update(ctx context.Context, table string, patch storage.Row, filters []storage.Filter) ([]storage.Row, error) {
	t, err := storage.Lookup(table)
	if err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return nil, storage.ErrUnfiltered
	}
	if err := t.CheckWrite(patch); err != nil {
		return nil, err
	}
	if err := t.CheckFilters(filters); err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, fmt.Errorf("empty update on %s", table)
	}

	sql, args := buildUpdate(table, patch, filters)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate(err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, translate(err)
	}
	return toRows(maps), nil
}

// Delete removes the rows matching filters.
func (s *Store) Delete(ctx context.Context, table string, filters []storage.Filter) (int64, error) {
	t, err := storage.Lookup(table)
	if err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, storage.ErrUnfiltered
	}
	if err := t.CheckFilters(filters); err != nil {
		return 0, err
	}

	sql, args := buildDelete(table, filters)
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

func scanIdentity(row pgx.Row) (models.Identity, error) {
	var identity models.Identity
	if err := row.Scan(&identity.ID, &identity.Email, &identity.PasswordHash, &identity.CreatedAt); err != nil {
		return models.Identity{}, translate(err)
	}
	return identity, nil
}

func toRows(maps []map[string]any) []storage.Row {
	out := make([]storage.Row, 0, len(maps))
	for _, m := range maps {
		out = append(out, storage.Row(m))
	}
	return out
}

// translate maps driver errors onto the storage sentinels.
func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return storage.ErrAlreadyExists
		case "23503", "23514", "23502":
			return fmt.Errorf("%w: %s", storage.ErrConstraint, strings.TrimSpace(pgErr.Message))
		}
	}
	return err
}
